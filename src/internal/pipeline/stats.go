// FILE: src/internal/pipeline/stats.go
package pipeline

import (
	"sync/atomic"
	"time"
)

// Stats accumulates totals across runs.
type Stats struct {
	StartTime time.Time

	runs      atomic.Uint64
	events    atomic.Uint64
	filtered  atomic.Uint64
	calls     atomic.Uint64
	batches   atomic.Uint64
	succeeded atomic.Uint64
	failed    atomic.Uint64
	lastRun   atomic.Value // time.Time
}

func NewStats() *Stats {
	s := &Stats{StartTime: time.Now()}
	s.lastRun.Store(time.Time{})
	return s
}

func (s *Stats) Runs() uint64      { return s.runs.Load() }
func (s *Stats) Succeeded() uint64 { return s.succeeded.Load() }
func (s *Stats) Failed() uint64    { return s.failed.Load() }

// GetStats returns a snapshot suitable for logging or JSON.
func (s *Stats) GetStats() map[string]any {
	lastRun, _ := s.lastRun.Load().(time.Time)
	return map[string]any{
		"uptime_seconds":  int(time.Since(s.StartTime).Seconds()),
		"total_runs":      s.runs.Load(),
		"total_events":    s.events.Load(),
		"filtered_events": s.filtered.Load(),
		"total_calls":     s.calls.Load(),
		"total_batches":   s.batches.Load(),
		"batches_ok":      s.succeeded.Load(),
		"batches_failed":  s.failed.Load(),
		"last_run":        lastRun,
	}
}
