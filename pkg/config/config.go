package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix  = "WALLGRAB_"
	dbSuffix   = "_downloaded.db"
	appDirName = "wallgrab"
)

// Config holds all configuration options for wallgrab
type Config struct {
	// Where candidate posts come from
	Feed FeedConfig `yaml:"feed" json:"feed"`

	// Persisted dedup history
	Store StoreConfig `yaml:"store" json:"store"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Retry behavior for transient fetch failures
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Resolver selection
	Resolvers ResolverConfig `yaml:"resolvers" json:"resolvers"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// FeedConfig selects and configures the feed source
type FeedConfig struct {
	Source    string `yaml:"source" json:"source"` // file or reddit
	File      string `yaml:"file" json:"file"`
	BaseURL   string `yaml:"base_url" json:"base_url"`
	User      string `yaml:"user" json:"user"`
	Listing   string `yaml:"listing" json:"listing"` // upvoted, saved, subreddit
	Subreddit string `yaml:"subreddit" json:"subreddit"`
	Sort      string `yaml:"sort" json:"sort"`
	Limit     int    `yaml:"limit" json:"limit"`
	Account   string `yaml:"account" json:"account"`
}

// StoreConfig holds the persisted store settings
type StoreConfig struct {
	Prefix string `yaml:"prefix" json:"prefix"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	Directory    string `yaml:"directory" json:"directory"`
	SaveMetadata bool   `yaml:"save_metadata" json:"save_metadata"`
	ReportFile   string `yaml:"report_file" json:"report_file"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	Timeout       time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent     string        `yaml:"user_agent" json:"user_agent"`
	HashAlgorithm string        `yaml:"hash_algorithm" json:"hash_algorithm"`
	MaxFileSize   int64         `yaml:"max_file_size" json:"max_file_size"`
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled" json:"enabled"`
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier  float64       `yaml:"multiplier" json:"multiplier"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int `yaml:"burst_size" json:"burst_size"`
}

// ResolverConfig lists the resolvers in the order they are consulted
type ResolverConfig struct {
	Enabled []string `yaml:"enabled" json:"enabled"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"` // console or json
	File   string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Feed: FeedConfig{
			Source:  "file",
			BaseURL: "https://oauth.reddit.com",
			Listing: "upvoted",
			Sort:    "hot",
			Limit:   100,
		},
		Store: StoreConfig{
			Prefix: "wallgrab",
		},
		Output: OutputConfig{
			Directory: "./wallpapers",
		},
		Download: DownloadConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "wallgrab/1.0 (+https://github.com/wallgrab/wallgrab)",
			HashAlgorithm: "md5",
		},
		Retry: RetryConfig{
			Enabled:     true,
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			MaxDelay:    30 * time.Second,
			Multiplier:  2.0,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			BurstSize:         5,
		},
		Resolvers: ResolverConfig{
			Enabled: []string{"direct", "imgur", "tumblr", "wallbase"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// DatabasePath returns the store file in the working directory
func (c *Config) DatabasePath() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return filepath.Join(wd, c.Store.Prefix+dbSuffix), nil
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	setString := func(name string, dst *string) {
		if v := os.Getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		if v := os.Getenv(envPrefix + name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = n
		}
	}

	setString("FEED_SOURCE", &c.Feed.Source)
	setString("FEED_FILE", &c.Feed.File)
	setString("REDDIT_USER", &c.Feed.User)
	setString("REDDIT_LISTING", &c.Feed.Listing)
	setString("REDDIT_SUBREDDIT", &c.Feed.Subreddit)
	setString("DB_PREFIX", &c.Store.Prefix)
	setString("OUTPUT_DIR", &c.Output.Directory)
	setString("REPORT_FILE", &c.Output.ReportFile)
	setString("USER_AGENT", &c.Download.UserAgent)
	setString("HASH_ALGORITHM", &c.Download.HashAlgorithm)
	setString("LOG_LEVEL", &c.Logging.Level)
	setString("LOG_FILE", &c.Logging.File)
	setString("LOG_FORMAT", &c.Logging.Format)
	setInt("REQUESTS_PER_MINUTE", &c.RateLimit.RequestsPerMinute)
	setInt("MAX_RETRIES", &c.Retry.MaxAttempts)
	setInt("FEED_LIMIT", &c.Feed.Limit)

	if v := os.Getenv(envPrefix + "TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sTIMEOUT: %w", envPrefix, err))
		} else {
			c.Download.Timeout = d
		}
	}
	if v := os.Getenv(envPrefix + "SAVE_METADATA"); v != "" {
		c.Output.SaveMetadata = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv(envPrefix + "RESOLVERS"); v != "" {
		c.Resolvers.Enabled = splitList(v)
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home, _ := os.UserHomeDir()
	locations := []string{
		".wallgrab.yaml",
		".wallgrab.yml",
	}
	if home != "" {
		locations = append(locations,
			filepath.Join(home, ".config", appDirName, "config.yaml"),
			filepath.Join(home, ".config", appDirName, "config.yml"),
			filepath.Join(home, ".wallgrab.yaml"),
		)
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	switch c.Feed.Source {
	case "file":
	case "reddit":
		switch c.Feed.Listing {
		case "upvoted", "saved":
			if c.Feed.User == "" {
				errs = append(errs, errors.New("feed user is required for upvoted and saved listings"))
			}
		case "subreddit":
			if c.Feed.Subreddit == "" {
				errs = append(errs, errors.New("feed subreddit is required for subreddit listings"))
			}
		default:
			errs = append(errs, fmt.Errorf("invalid feed listing %q", c.Feed.Listing))
		}
		if c.Feed.Limit <= 0 {
			errs = append(errs, errors.New("feed limit must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid feed source %q", c.Feed.Source))
	}

	if c.Store.Prefix == "" {
		errs = append(errs, errors.New("store prefix is required"))
	} else if strings.ContainsAny(c.Store.Prefix, `/\`) {
		errs = append(errs, errors.New("store prefix must not contain path separators"))
	}

	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	if c.Download.Timeout < 0 {
		errs = append(errs, errors.New("download timeout cannot be negative"))
	}
	if c.Download.MaxFileSize < 0 {
		errs = append(errs, errors.New("max file size cannot be negative"))
	}
	switch strings.ToLower(c.Download.HashAlgorithm) {
	case "md5", "blake3":
	default:
		errs = append(errs, fmt.Errorf("unsupported hash algorithm %q", c.Download.HashAlgorithm))
	}

	if c.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("max retry attempts cannot be negative"))
	}
	if c.Retry.Enabled && c.Retry.Multiplier < 1 {
		errs = append(errs, errors.New("retry multiplier must be at least 1"))
	}

	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}
	if c.RateLimit.RequestsPerMinute > 0 && c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}

	if len(c.Resolvers.Enabled) == 0 {
		errs = append(errs, errors.New("at least one resolver must be enabled"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log format %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["feed-file"].(string); ok && v != "" {
		c.Feed.File = v
		c.Feed.Source = "file"
	}
	if v, ok := flags["feed-source"].(string); ok && v != "" {
		c.Feed.Source = v
	}
	if v, ok := flags["reddit-user"].(string); ok && v != "" {
		c.Feed.User = v
	}
	if v, ok := flags["listing"].(string); ok && v != "" {
		c.Feed.Listing = v
	}
	if v, ok := flags["subreddit"].(string); ok && v != "" {
		c.Feed.Subreddit = v
	}
	if v, ok := flags["limit"].(int); ok && v > 0 {
		c.Feed.Limit = v
	}
	if v, ok := flags["account"].(string); ok && v != "" {
		c.Feed.Account = v
	}
	if v, ok := flags["db-prefix"].(string); ok && v != "" {
		c.Store.Prefix = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.Directory = v
	}
	if v, ok := flags["save-metadata"].(bool); ok {
		c.Output.SaveMetadata = v
	}
	if v, ok := flags["report"].(string); ok && v != "" {
		c.Output.ReportFile = v
	}
	if v, ok := flags["timeout"].(time.Duration); ok && v > 0 {
		c.Download.Timeout = v
	}
	if v, ok := flags["hash"].(string); ok && v != "" {
		c.Download.HashAlgorithm = v
	}
	if v, ok := flags["max-retries"].(int); ok && v >= 0 {
		c.Retry.MaxAttempts = v
	}
	if v, ok := flags["requests-per-minute"].(int); ok && v >= 0 {
		c.RateLimit.RequestsPerMinute = v
	}
	if v, ok := flags["resolvers"].([]string); ok && len(v) > 0 {
		c.Resolvers.Enabled = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["log-format"].(string); ok && v != "" {
		c.Logging.Format = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	if home, err := os.UserHomeDir(); err == nil {
		_ = godotenv.Load(filepath.Join(home, ".wallgrab.env"))
	}

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// DefaultPath returns the per-user config file location
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appDirName, "config.yaml"), nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
