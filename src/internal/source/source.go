// FILE: src/internal/source/source.go
package source

import (
	"context"
	"time"

	"segbridge/src/internal/core"
	"segbridge/src/internal/pipeline"
)

// RunFunc hands decoded events to the pipeline.
type RunFunc func(ctx context.Context, events []core.Record) pipeline.Result

// Source accepts events from the network and runs them.
type Source interface {
	// Begins accepting input
	Start() error

	// Stops accepting input and flushes pending events
	Stop()

	// Returns source statistics
	GetStats() SourceStats
}

// Contains statistics about a source
type SourceStats struct {
	Type          string
	TotalEvents   uint64
	InvalidLines  uint64
	Runs          uint64
	StartTime     time.Time
	LastEventTime time.Time
	Details       map[string]any
}
