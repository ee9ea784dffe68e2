package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"wallgrab/pkg/config"
	"wallgrab/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectRunFlags(t *testing.T) {
	require.NoError(t, runCmd.ParseFlags([]string{
		"--output", "walls",
		"--hash", "blake3",
		"--save-metadata",
		"--timeout", "5s",
		"--rate-limit", "0",
		"--resolvers", "direct,imgur",
	}))

	flags := collectRunFlags(runCmd, []string{"feed.json"})
	assert.Equal(t, "feed.json", flags["feed-file"])
	assert.Equal(t, "walls", flags["output"])
	assert.Equal(t, "blake3", flags["hash"])
	assert.Equal(t, true, flags["save-metadata"])
	assert.Equal(t, 5*time.Second, flags["timeout"])
	assert.Equal(t, 0, flags["requests-per-minute"])
	assert.Equal(t, []string{"direct", "imgur"}, flags["resolvers"])
	assert.NotContains(t, flags, "max-retries")
	assert.NotContains(t, flags, "listing")

	cfg := config.DefaultConfig()
	cfg.MergeCommandLineFlags(flags)
	assert.Equal(t, "file", cfg.Feed.Source)
	assert.Equal(t, "feed.json", cfg.Feed.File)
	assert.Equal(t, "walls", cfg.Output.Directory)
	assert.True(t, cfg.Output.SaveMetadata)
	assert.Equal(t, 0, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
}

func TestBuildFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"title":"a","channel":"x","url":"http://example.com/a.jpg"}]`), 0644))

	cfg := config.DefaultConfig()
	cfg.Feed.File = path

	source, err := buildSource(cfg, logger.NewNopLogger())
	require.NoError(t, err)
	posts, err := source.Posts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "x", posts[0].Channel)
}

func TestBuildSourceErrors(t *testing.T) {
	cfg := config.DefaultConfig()
	_, err := buildSource(cfg, logger.NewNopLogger())
	assert.ErrorContains(t, err, "no feed file")

	cfg.Feed.Source = "ftp"
	_, err = buildSource(cfg, logger.NewNopLogger())
	assert.ErrorContains(t, err, "unknown feed source")
}
