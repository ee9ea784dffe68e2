package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"wallgrab/pkg/config"
	"wallgrab/pkg/metadata"
	"wallgrab/pkg/report"
	"wallgrab/pkg/store"
	"wallgrab/pkg/ui"
)

var (
	historyLimit int
	cleanOrphans bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show what earlier runs downloaded",
	Long: `Show statistics of the history database, the most recently saved images
and, when a report file is configured, the outcome of the last run.`,
	Example: `  # Last 20 images
  wallgrab history -n 20

  # Also delete metadata sidecars whose image is gone
  wallgrab history --clean-metadata`,
	Args: cobra.NoArgs,
	Run:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of recent images to show")
	historyCmd.Flags().BoolVar(&cleanOrphans, "clean-metadata", false, "remove metadata sidecars without an image")
}

func runHistory(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		ui.PrintError("Failed to locate history database", err.Error())
		os.Exit(1)
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		ui.PrintInfo("No history yet", dbPath)
		return
	}

	ctx := context.Background()
	db, err := store.Open(ctx, dbPath)
	if err != nil {
		ui.PrintError("History database unavailable", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	stats, err := db.Stats(ctx)
	if err != nil {
		ui.PrintError("Failed to read statistics", err.Error())
		os.Exit(1)
	}

	ui.PrintHighlight("Download History")
	ui.PrintInfo("Database", dbPath)
	ui.PrintInfo("Images", humanize.Comma(int64(stats.Images)))
	ui.PrintInfo("Completed posts", humanize.Comma(int64(stats.CompletedPosts)))
	ui.PrintInfo("Channels", humanize.Comma(int64(stats.Channels)))

	recent, err := db.Recent(ctx, historyLimit)
	if err != nil {
		ui.PrintError("Failed to read recent images", err.Error())
		os.Exit(1)
	}
	if len(recent) > 0 {
		fmt.Println()
		for _, img := range recent {
			fmt.Printf("  %s  %s %s\n",
				ui.Dim(humanize.Time(img.SavedAt)),
				img.Filename,
				ui.Dim("("+img.Channel+")"))
		}
	}

	if cfg.Output.ReportFile != "" {
		last, err := report.NewManager(cfg.Output.ReportFile, nil).Load()
		switch {
		case err != nil:
			ui.PrintWarning("Failed to read last report", err.Error())
		case last != nil:
			fmt.Println()
			ui.PrintInfo("Last run", fmt.Sprintf("%s, %d saved, %d unhandled",
				humanize.Time(last.FinishedAt), last.Saved, len(last.Unhandled)))
		}
	}

	if cleanOrphans {
		removed, err := metadata.CleanOrphaned(cfg.Output.Directory)
		if err != nil {
			ui.PrintError("Failed to clean metadata", err.Error())
			os.Exit(1)
		}
		ui.PrintSuccess(fmt.Sprintf("Removed %d orphaned metadata files", removed))
	}
}
