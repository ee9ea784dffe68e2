package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"wallgrab/pkg/config"
	"wallgrab/pkg/digest"
	"wallgrab/pkg/resolver"
	"wallgrab/pkg/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage wallgrab configuration files.

Configuration is loaded from (highest priority first):
  - Command line flags
  - Environment variables (WALLGRAB_*), including a .env file
  - Configuration file
  - Default values`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file with the default values",
	Long: `Create a configuration file holding every option at its default value.

The file is written to ~/.config/wallgrab/config.yaml unless a different path
is given with --config.`,
	Run: runConfigInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Run:   runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration from all sources and check it.

This command checks:
  - YAML syntax
  - Required fields and value ranges
  - Resolver names and hash algorithm
  - Output and log directories can be created`,
	Run: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			ui.PrintError("Failed to locate config directory", err.Error())
			os.Exit(1)
		}
		configPath = p
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	if err := config.DefaultConfig().Save(configPath); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Edit the feed section (source: file or reddit)")
	fmt.Println("2. Run 'wallgrab config validate' to check the configuration")
	fmt.Println("3. Start with 'wallgrab run <feed.json>'")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		os.Exit(1)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	if dbPath, err := cfg.DatabasePath(); err == nil {
		fmt.Println()
		ui.PrintInfo("History database", dbPath)
	}
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	if configFile != "" {
		ui.PrintInfo("Validating configuration", configFile)
	}

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		os.Exit(1)
	}

	var problems []string

	known := make(map[string]bool)
	for _, name := range resolver.Available() {
		known[name] = true
	}
	for _, name := range cfg.Resolvers.Enabled {
		if !known[name] {
			problems = append(problems, fmt.Sprintf("unknown resolver %q (available: %s)", name, strings.Join(resolver.Available(), ", ")))
		}
	}

	if _, err := digest.New(cfg.Download.HashAlgorithm); err != nil {
		problems = append(problems, err.Error())
	}

	if err := os.MkdirAll(cfg.Output.Directory, 0755); err != nil {
		problems = append(problems, fmt.Sprintf("cannot create output directory: %v", err))
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}
	if cfg.Feed.Source == "file" && cfg.Feed.File != "" && cfg.Feed.File != "-" {
		if _, err := os.Stat(cfg.Feed.File); err != nil {
			problems = append(problems, fmt.Sprintf("feed file: %v", err))
		}
	}

	if len(problems) > 0 {
		ui.PrintError("Configuration has problems")
		for _, p := range problems {
			fmt.Println("  - " + p)
		}
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration is valid")
}
