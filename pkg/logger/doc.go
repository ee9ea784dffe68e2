// Package logger provides the structured logging interface used across wallgrab.
//
// It wraps zerolog behind a small Logger interface so that packages log with
// fields instead of formatted strings:
//
//	log := logger.GetLogger().WithField("component", "pipeline")
//	log.InfoWithFields("Image saved", map[string]interface{}{
//	    "url":  target.URL,
//	    "hash": target.ContentHash,
//	})
//
// Terminal output goes to stderr, colored by default or as raw JSON lines when
// LoggingConfig.Format is "json". When LoggingConfig.File is set, JSON events
// are also appended to that file. Tests use NewTestLogger to capture
// and assert on messages, or NewNopLogger to discard them.
package logger
