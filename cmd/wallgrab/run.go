package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"wallgrab/pkg/auth"
	"wallgrab/pkg/config"
	"wallgrab/pkg/digest"
	"wallgrab/pkg/feed"
	"wallgrab/pkg/httpclient"
	"wallgrab/pkg/logger"
	"wallgrab/pkg/media"
	"wallgrab/pkg/pipeline"
	"wallgrab/pkg/report"
	"wallgrab/pkg/resolver"
	"wallgrab/pkg/storage"
	"wallgrab/pkg/store"
	"wallgrab/pkg/ui"
)

const publicRedditURL = "https://www.reddit.com"

var (
	// Run command flags
	feedSource   string
	redditUser   string
	listing      string
	subreddit    string
	feedLimit    int
	accountName  string
	outputDir    string
	dbPrefix     string
	saveMetadata bool
	reportFile   string
	hashAlg      string
	timeout      time.Duration
	maxRetries   int
	rateLimit    int
	resolvers    []string
)

var runCmd = &cobra.Command{
	Use:   "run [feed.json]",
	Short: "Download the images linked from a feed",
	Long: `Read a feed, resolve each post to image URLs and download new images.

The feed is either a JSON file (a Reddit listing, an array of listings or a
flat array of {title, channel, url}) or a live Reddit listing. Use '-' to read
the file from stdin.

Interrupting with Ctrl+C stops before the next post; everything already saved
stays recorded and the next run picks up where this one stopped.`,
	Example: `  # Process a saved listing
  wallgrab run upvoted.json

  # Read your upvoted posts directly (needs 'wallgrab auth login')
  wallgrab run --source reddit --user me --listing upvoted --limit 200

  # Pull a subreddit into a specific directory with sidecar metadata
  wallgrab run --source reddit --listing subreddit --subreddit wallpapers -o ./walls --save-metadata

  # Only use direct links and imgur, write a JSON report
  wallgrab run feed.json --resolvers direct,imgur --report last-run.json`,
	Args: cobra.MaximumNArgs(1),
	Run:  runFetch,
}

func init() {
	rootCmd.AddCommand(runCmd)

	// Registered on root as well so 'wallgrab feed.json --output x' works
	for _, c := range []*cobra.Command{runCmd, rootCmd} {
		f := c.Flags()
		f.StringVar(&feedSource, "source", "", "feed source: file or reddit")
		f.StringVar(&redditUser, "user", "", "reddit user whose listing is read")
		f.StringVar(&listing, "listing", "", "reddit listing: upvoted, saved or subreddit")
		f.StringVar(&subreddit, "subreddit", "", "subreddit for the subreddit listing")
		f.IntVar(&feedLimit, "limit", 0, "maximum number of posts read from reddit")
		f.StringVarP(&accountName, "account", "a", "", "use specific stored account")
		f.StringVarP(&outputDir, "output", "o", "", "output directory for images")
		f.StringVar(&dbPrefix, "db-prefix", "", "prefix of the <prefix>_downloaded.db history file")
		f.BoolVar(&saveMetadata, "save-metadata", false, "write a JSON sidecar next to every image")
		f.StringVar(&reportFile, "report", "", "write a JSON run report to this file")
		f.StringVar(&hashAlg, "hash", "", "content hash algorithm: "+strings.Join(digest.Algorithms(), " or "))
		f.DurationVar(&timeout, "timeout", 0, "per request timeout")
		f.IntVar(&maxRetries, "max-retries", -1, "maximum attempts for transient fetch failures")
		f.IntVar(&rateLimit, "rate-limit", -1, "requests per minute (0 disables pacing)")
		f.StringSliceVar(&resolvers, "resolvers", nil, "resolvers to consult, in order")
	}
}

func runFetch(cmd *cobra.Command, args []string) {
	flags := collectRunFlags(cmd, args)

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	// Progress lines own the terminal unless verbose output is requested
	if !verbose && logLevel == "" && cfg.Logging.File == "" {
		cfg.Logging.Level = "warn"
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		os.Exit(1)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("wallgrab starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		ui.PrintError("Failed to locate history database", err.Error())
		os.Exit(1)
	}
	db, err := store.Open(ctx, dbPath)
	if err != nil {
		log.WithError(err).WithField("path", dbPath).Error("History database unavailable")
		ui.PrintError("History database unavailable", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	client := httpclient.NewFromConfig(cfg, log)

	registry, err := resolver.Build(cfg.Resolvers.Enabled, client, log)
	if err != nil {
		ui.PrintError("Invalid resolver configuration", err.Error())
		os.Exit(1)
	}

	source, err := buildSource(cfg, log)
	if err != nil {
		ui.PrintError("Failed to set up feed", err.Error())
		os.Exit(1)
	}

	posts, err := source.Posts(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to read feed")
		ui.PrintError("Failed to read feed", err.Error())
		os.Exit(1)
	}

	writer, err := storage.NewManager(cfg.Output.Directory)
	if err != nil {
		ui.PrintError("Failed to prepare output directory", err.Error())
		os.Exit(1)
	}

	hasher, err := digest.New(cfg.Download.HashAlgorithm)
	if err != nil {
		ui.PrintError("Invalid hash algorithm", err.Error())
		os.Exit(1)
	}

	progress := ui.NewProgress(verbose)
	orchestrator, err := pipeline.New(pipeline.Config{
		Store:        db,
		Resolver:     registry,
		Fetcher:      client,
		Writer:       writer,
		Verifier:     media.DecodeVerifier{},
		Hasher:       hasher,
		SaveMetadata: cfg.Output.SaveMetadata,
		Observer:     pipeline.Observers{progress, pipeline.LogObserver{Logger: log}},
		Logger:       log,
	})
	if err != nil {
		ui.PrintError("Failed to build pipeline", err.Error())
		os.Exit(1)
	}

	ui.PrintInfo("Feed", fmt.Sprintf("%d posts", len(posts)))
	ui.PrintInfo("Output", writer.Dir())
	ui.PrintInfo("History", dbPath)

	started := time.Now()
	result, err := orchestrator.Run(ctx, posts)
	if err != nil {
		log.WithError(err).Error("Run aborted")
		ui.PrintError("Run aborted", err.Error())
		os.Exit(1)
	}
	finished := time.Now()

	if n := progress.Pruned(); n > 0 && !verbose {
		ui.PrintInfo("Already handled", fmt.Sprintf("%d posts skipped without fetching", n))
	}
	ui.PrintSummary(result, finished.Sub(started))
	if n := writer.SavedCount(); n > 0 {
		ui.PrintInfo("Files written", fmt.Sprintf("%d in %s", n, writer.Dir()))
	}

	if cfg.Output.ReportFile != "" {
		reports := report.NewManager(cfg.Output.ReportFile, log)
		if err := reports.Save(report.New(result, started, finished)); err != nil {
			ui.PrintWarning("Failed to write report", err.Error())
		} else {
			ui.PrintInfo("Report", reports.Path())
		}
	}

	if result.Interrupted {
		ui.PrintWarning("Interrupted; run again to continue where this run stopped")
	}
}

// collectRunFlags turns explicitly set flags into the map config.Load merges
func collectRunFlags(cmd *cobra.Command, args []string) map[string]interface{} {
	flags := make(map[string]interface{})
	changed := cmd.Flags().Changed

	if len(args) > 0 {
		flags["feed-file"] = args[0]
	}
	if changed("source") {
		flags["feed-source"] = feedSource
	}
	if changed("user") {
		flags["reddit-user"] = redditUser
	}
	if changed("listing") {
		flags["listing"] = listing
	}
	if changed("subreddit") {
		flags["subreddit"] = subreddit
	}
	if changed("limit") {
		flags["limit"] = feedLimit
	}
	if changed("account") {
		flags["account"] = accountName
	}
	if changed("output") {
		flags["output"] = outputDir
	}
	if changed("db-prefix") {
		flags["db-prefix"] = dbPrefix
	}
	if changed("save-metadata") {
		flags["save-metadata"] = saveMetadata
	}
	if changed("report") {
		flags["report"] = reportFile
	}
	if changed("hash") {
		flags["hash"] = hashAlg
	}
	if changed("timeout") {
		flags["timeout"] = timeout
	}
	if changed("max-retries") {
		flags["max-retries"] = maxRetries
	}
	if changed("rate-limit") {
		flags["requests-per-minute"] = rateLimit
	}
	if changed("resolvers") {
		flags["resolvers"] = resolvers
	}
	if logFormat != "" {
		flags["log-format"] = logFormat
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	return flags
}

// buildSource picks the feed source. Reddit listings use their own client so
// the bearer token never reaches image hosts.
func buildSource(cfg *config.Config, log logger.Logger) (feed.Source, error) {
	switch cfg.Feed.Source {
	case "file":
		if cfg.Feed.File == "" {
			return nil, errors.New("no feed file given; pass a path or '-' for stdin")
		}
		return feed.NewFileSource(cfg.Feed.File), nil

	case "reddit":
		account, err := feedAccount(cfg.Feed.Account)
		if err != nil && cfg.Feed.Listing != "subreddit" {
			return nil, fmt.Errorf("%s listing needs stored credentials (run 'wallgrab auth login'): %w", cfg.Feed.Listing, err)
		}

		feedCfg := cfg.Feed
		client := httpclient.NewFromConfig(cfg, log)
		if account != nil {
			client.SetHeader("Authorization", account.AuthorizationHeader())
			if account.UserAgent != "" {
				client.SetHeader("User-Agent", account.UserAgent)
			}
		} else if strings.Contains(feedCfg.BaseURL, "oauth.reddit.com") {
			feedCfg.BaseURL = publicRedditURL
		}
		source, err := feed.NewRedditSource(client, feedCfg, log)
		if err != nil {
			return nil, err
		}
		return source, nil
	}
	return nil, fmt.Errorf("unknown feed source %q", cfg.Feed.Source)
}

func feedAccount(name string) (*auth.Account, error) {
	manager, err := auth.NewManager()
	if err != nil {
		return nil, err
	}
	if name != "" {
		return manager.Retrieve(name)
	}
	return manager.RetrieveDefault()
}
