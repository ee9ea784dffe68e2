package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"wallgrab/pkg/models"
)

// LogRequest logs HTTP request information
func LogRequest(l Logger, method, url string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	}

	switch {
	case statusCode >= 500:
		l.WarnWithFields("HTTP request server error", fields)
	case statusCode >= 400:
		l.DebugWithFields("HTTP request client error", fields)
	default:
		l.DebugWithFields("HTTP request completed", fields)
	}
}

// LogOutcome logs one pipeline outcome at a level matching its status
func LogOutcome(l Logger, o models.Outcome) {
	fields := map[string]interface{}{
		"status":  string(o.Status),
		"url":     o.URL(),
		"channel": o.Candidate.Channel,
		"index":   o.Index,
		"total":   o.Total,
	}
	if o.Target != nil {
		fields["post_url"] = o.Candidate.URL
		fields["filename"] = o.Target.Filename
		if o.Target.ContentHash != "" {
			fields["hash"] = o.Target.ContentHash
		}
	}
	if o.Path != "" {
		fields["path"] = o.Path
	}
	if o.Err != nil {
		fields["error"] = o.Err.Error()
	}

	switch {
	case o.Status == models.StatusSaved:
		l.InfoWithFields("Image saved", fields)
	case o.Status.Failed():
		l.ErrorWithFields("Candidate not handled", fields)
	case o.Status.Rejected():
		l.WarnWithFields("Content rejected", fields)
	case o.Status == models.StatusDeclined:
		l.DebugWithFields("No resolver handled candidate", fields)
	default:
		l.InfoWithFields("Skipped", fields)
	}
}

// LogRunSummary logs the counters of a finished run
func LogRunSummary(l Logger, r *models.Result, elapsed time.Duration) {
	l.InfoWithFields("Run finished", map[string]interface{}{
		"saved":       r.Saved,
		"duplicates":  r.Duplicates,
		"skipped":     r.Skipped,
		"declined":    r.Declined,
		"rejected":    r.Rejected,
		"failed":      r.Failed,
		"handled":     len(r.Handled),
		"unhandled":   len(r.Unhandled),
		"bytes":       r.Bytes,
		"interrupted": r.Interrupted,
		"elapsed":     elapsed,
	})
}

// NewNopLogger creates a no-operation logger
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
