package ui

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"wallgrab/pkg/models"
)

// PrintSummary prints the end-of-run counters and the unhandled list
func PrintSummary(r *models.Result, elapsed time.Duration) {
	if r == nil {
		return
	}

	if !isQuiet() {
		writeLine("")
		title := "Run complete"
		if r.Interrupted {
			title = "Run interrupted"
		}
		writeLine(Green("✓ ") + title + Dim(" in "+formatDuration(elapsed)))
		writeLine(fmt.Sprintf("  %s %s saved (%s)", Dim("•"), humanize.Comma(int64(r.Saved)), humanize.Bytes(uint64(r.Bytes))))
		writeLine(fmt.Sprintf("  %s %s duplicate content, %s skipped, %s not handled",
			Dim("•"), humanize.Comma(int64(r.Duplicates)), humanize.Comma(int64(r.Skipped)), humanize.Comma(int64(r.Declined))))
		if r.Rejected > 0 {
			writeLine(fmt.Sprintf("  %s %s rejected", Dim("•"), Yellow(humanize.Comma(int64(r.Rejected)))))
		}
		writeLine(fmt.Sprintf("  %s %d handled, %d unhandled", Dim("•"), len(r.Handled), len(r.Unhandled)))
	}

	if len(r.Unhandled) > 0 {
		writeLine(Red(fmt.Sprintf("%d candidate(s) raised errors:", len(r.Unhandled))))
		for _, c := range r.Unhandled {
			writeLine("  " + c.URL)
		}
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
