// Package progress reports long-running task completion through the
// structured log without flooding it.
package progress

import (
	"log/slog"
	"sync/atomic"
	"time"

	"sparrow/internal/shared/util"
)

// Tracker counts completed units of one task and logs progress at a bounded
// rate. Add is safe for concurrent use; the rate limit keeps a hot loop of
// small batches from writing thousands of log lines.
type Tracker struct {
	task    string
	total   int64
	done    atomic.Int64
	limiter *util.Limiter
	started time.Time
}

// NewTracker creates a tracker for a task expected to complete total units.
// A total of 0 means the extent is unknown and percentages are omitted.
func NewTracker(task string, total int64) *Tracker {
	return &Tracker{
		task:    task,
		total:   total,
		limiter: util.NewLimiter(2, 1),
		started: time.Now(),
	}
}

// Add records n completed units.
func (t *Tracker) Add(n int64) {
	done := t.done.Add(n)
	if !t.limiter.Allow(1) {
		return
	}
	if t.total > 0 {
		slog.Info("progress",
			"task", t.task,
			"done", done,
			"total", t.total,
			"percent", float64(done)*100/float64(t.total))
		return
	}
	slog.Info("progress", "task", t.task, "done", done)
}

// Done returns the number of units recorded so far.
func (t *Tracker) Done() int64 {
	return t.done.Load()
}

// Finish logs the final tally regardless of the rate limit.
func (t *Tracker) Finish() {
	slog.Info("progress complete",
		"task", t.task,
		"done", t.done.Load(),
		"elapsed", time.Since(t.started))
}
