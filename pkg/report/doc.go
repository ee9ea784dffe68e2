// Package report persists a JSON summary of a run: counters, the handled and
// unhandled candidate lists and every emitted outcome. Files are replaced
// atomically so an interrupted write never leaves a truncated report.
package report
