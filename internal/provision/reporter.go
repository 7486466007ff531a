// Defines progress reporting interfaces and implementations.

package provision

import (
	"log/slog"
	"time"
)

// Stats contains statistics about a setup or seed run.
type Stats struct {
	Created   int `json:"created"`   // databases created
	Updated   int `json:"updated"`   // databases updated in place
	Relations int `json:"relations"` // relation properties attached, both passes
	Rows      int `json:"rows"`      // rows inserted
	Linked    int `json:"linked"`    // rows whose relations were set
	Warnings  int `json:"warnings"`
	Errors    int `json:"errors"`

	Duration time.Duration `json:"duration"`
}

// Reporter is the interface for reporting progress.
//
// Warnings are non-fatal issues that leave part of the workspace unset.
// Errors are failed calls that were skipped; fatal errors are returned instead.
type Reporter interface {
	OnPhase(name string, total int)
	OnProgress(item string)
	OnWarning(msg string)
	OnError(err error)
	OnComplete(stats Stats)
}

// LogReporter logs progress through slog.
type LogReporter struct {
	Logger *slog.Logger
}

// NewLogReporter returns a reporter logging to l, or to the default logger
// when l is nil.
func NewLogReporter(l *slog.Logger) *LogReporter {
	if l == nil {
		l = slog.Default()
	}
	return &LogReporter{Logger: l}
}

// OnPhase is called when a phase begins.
func (r *LogReporter) OnPhase(name string, total int) {
	r.Logger.Info(name, "items", total)
}

// OnProgress is called for each item processed.
func (r *LogReporter) OnProgress(item string) {
	r.Logger.Info("processing", "item", item)
}

// OnWarning is called for non-fatal issues.
func (r *LogReporter) OnWarning(msg string) {
	r.Logger.Warn(msg)
}

// OnError is called for skipped failures.
func (r *LogReporter) OnError(err error) {
	r.Logger.Error("call failed", "err", err)
}

// OnComplete is called when the run finishes.
func (r *LogReporter) OnComplete(stats Stats) {
	r.Logger.Info("complete",
		"created", stats.Created,
		"updated", stats.Updated,
		"relations", stats.Relations,
		"rows", stats.Rows,
		"linked", stats.Linked,
		"warnings", stats.Warnings,
		"errors", stats.Errors,
		"duration", stats.Duration.Round(time.Millisecond),
	)
}

// NullReporter discards all progress updates.
type NullReporter struct{}

// OnPhase is called when a phase begins.
func (NullReporter) OnPhase(name string, total int) {}

// OnProgress is called for each item processed.
func (NullReporter) OnProgress(item string) {}

// OnWarning is called for non-fatal issues.
func (NullReporter) OnWarning(msg string) {}

// OnError is called for skipped failures.
func (NullReporter) OnError(err error) {}

// OnComplete is called when the run finishes.
func (NullReporter) OnComplete(stats Stats) {}

// tally wraps a Reporter and counts warnings and errors into stats.
type tally struct {
	Reporter
	stats *Stats
}

func (t *tally) OnWarning(msg string) {
	t.stats.Warnings++
	t.Reporter.OnWarning(msg)
}

func (t *tally) OnError(err error) {
	t.stats.Errors++
	t.Reporter.OnError(err)
}
