package ui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"wallgrab/pkg/models"
)

// Progress prints one line per outcome as the run proceeds. Pruned and
// declined candidates are only shown when verbose is set.
type Progress struct {
	mu      sync.Mutex
	verbose bool
	pruned  int
}

// NewProgress creates a progress printer
func NewProgress(verbose bool) *Progress {
	return &Progress{verbose: verbose}
}

// Observe prints the outcome line
func (p *Progress) Observe(o models.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if o.Status == models.StatusPruned {
		p.pruned++
	}
	if !p.verbose && (o.Status == models.StatusPruned || o.Status == models.StatusDeclined) {
		return
	}
	if isQuiet() && !o.Status.Failed() {
		return
	}

	writeLine(FormatOutcome(o))
}

// Pruned returns how many candidates were dropped before processing
func (p *Progress) Pruned() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pruned
}

// FormatOutcome renders one outcome as a single terminal line
func FormatOutcome(o models.Outcome) string {
	var b strings.Builder

	if o.Index > 0 {
		width := len(fmt.Sprint(o.Total))
		b.WriteString(Dim(fmt.Sprintf("[%*d/%d] ", width, o.Index, o.Total)))
	}
	b.WriteString(statusLabel(o.Status))
	b.WriteString(" ")

	name := o.URL()
	if o.Target != nil && o.Target.Filename != "" {
		name = o.Target.Filename
	}
	b.WriteString(name)

	if o.Candidate.Channel != "" {
		b.WriteString(Dim(" (" + o.Candidate.Channel + ")"))
	}
	if o.Status == models.StatusSaved && o.Bytes > 0 {
		b.WriteString(" " + humanize.Bytes(uint64(o.Bytes)))
	}
	if o.Err != nil {
		b.WriteString(" " + Red(o.Err.Error()))
	}
	return b.String()
}

func statusLabel(s models.Status) string {
	label := fmt.Sprintf("%-9s", strings.ToUpper(shortStatus(s)))
	switch {
	case s == models.StatusSaved:
		return Green(label)
	case s.Failed():
		return Red(label)
	case s.Rejected():
		return Yellow(label)
	case s == models.StatusDuplicateContent:
		return Magenta(label)
	default:
		return Cyan(label)
	}
}

func shortStatus(s models.Status) string {
	switch s {
	case models.StatusSkippedDuplicatePost:
		return "dup-post"
	case models.StatusSkippedDuplicateImage:
		return "dup-url"
	case models.StatusDuplicateContent:
		return "dup-hash"
	case models.StatusFetchFailed:
		return "failed"
	case models.StatusInvalidContentType:
		return "not-image"
	case models.StatusCorruptImage:
		return "corrupt"
	case models.StatusUnhandledError:
		return "error"
	}
	return string(s)
}
