package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"wallgrab/pkg/ui"
)

var (
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	logFormat  string
	noColor    bool
	quiet      bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "wallgrab [feed.json]",
	Short: "Collect wallpaper images linked from a feed of posts",
	Long: `wallgrab reads a feed of posts (a saved Reddit listing or a live listing),
resolves each link to direct image URLs and downloads every image it has not
seen before.

Deduplication happens three ways:
  - posts and image URLs already handled in an earlier run are skipped
  - identical image bytes are recognised by content hash
  - the download history lives in <prefix>_downloaded.db in the working directory

Running wallgrab with a feed file is the same as 'wallgrab run <file>'.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	Args:    cobra.MaximumNArgs(1),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.Configure(nil, !noColor && ui.StdoutIsTerminal(), quiet)
	},
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			_ = cmd.Help()
			return
		}
		runFetch(cmd, args)
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .wallgrab.yaml or ~/.config/wallgrab/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show every outcome and info logs")

	rootCmd.SetVersionTemplate(`wallgrab {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
