// FILE: src/internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"segbridge/src/internal/core"
	"segbridge/src/internal/filter"
	"segbridge/src/internal/format"

	"github.com/google/uuid"
	"github.com/lixenwraith/log"
)

// CallBuilder converts source records into per-event destination calls.
type CallBuilder interface {
	BuildEvents(events []core.Record) [][]core.Record
}

// Packer groups per-event calls into enveloped payloads.
type Packer interface {
	Pack(events [][]core.Record) []string
}

// Sender delivers payloads and returns one outcome per payload, in order.
type Sender interface {
	Send(ctx context.Context, batches []string) []core.Outcome
}

// Result summarizes one run.
type Result struct {
	RunID     string         `json:"run_id"`
	Events    int            `json:"events"`
	Filtered  int            `json:"filtered"`
	Calls     int            `json:"calls"`
	Batches   int            `json:"batches"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Duration  time.Duration  `json:"duration_ns"`
	Outcomes  []core.Outcome `json:"-"`
}

// Pipeline runs decode, filter, format, pack and send for a set of events.
// Each Run is independent; a Pipeline is safe for concurrent use when its
// collaborators are.
type Pipeline struct {
	builder  CallBuilder
	packer   Packer
	sender   Sender
	filters  *filter.Chain
	observer core.Observer
	decoder  *format.Decoder
	Stats    *Stats
	logger   *log.Logger
}

// New creates a pipeline. A nil observer is replaced by core.NopObserver.
func New(builder CallBuilder, packer Packer, sender Sender, observer core.Observer, logger *log.Logger) *Pipeline {
	if observer == nil {
		observer = core.NopObserver{}
	}
	return &Pipeline{
		builder:  builder,
		packer:   packer,
		sender:   sender,
		observer: observer,
		decoder:  format.NewDecoder(0, logger),
		Stats:    NewStats(),
		logger:   logger,
	}
}

// WithFilters sets the chain applied to events before calls are built.
func (p *Pipeline) WithFilters(chain *filter.Chain) *Pipeline {
	p.filters = chain
	return p
}

// WithDecoder replaces the NDJSON decoder used by RunNDJSON.
func (p *Pipeline) WithDecoder(d *format.Decoder) *Pipeline {
	p.decoder = d
	return p
}

// Run processes events and always completes with one outcome per batch.
func (p *Pipeline) Run(ctx context.Context, events []core.Record) Result {
	start := time.Now()
	res := Result{
		RunID:  uuid.NewString(),
		Events: len(events),
	}
	p.Stats.runs.Add(1)
	p.Stats.events.Add(uint64(len(events)))

	kept := events
	if p.filters != nil {
		kept = p.filters.Select(events)
	}
	res.Filtered = len(events) - len(kept)
	p.Stats.filtered.Add(uint64(res.Filtered))

	p.observer.BeforeFormat(kept)
	calls := p.builder.BuildEvents(kept)
	p.observer.AfterFormat(calls)

	for _, c := range calls {
		res.Calls += len(c)
	}
	p.Stats.calls.Add(uint64(res.Calls))

	batches := p.packer.Pack(calls)
	res.Batches = len(batches)
	p.Stats.batches.Add(uint64(res.Batches))

	if len(batches) > 0 {
		p.observer.BeforeSend(batches)
		res.Outcomes = p.sender.Send(ctx, batches)
		p.observer.AfterSend(res.Outcomes)
	}

	for _, o := range res.Outcomes {
		if o.OK() {
			res.Succeeded++
			continue
		}
		res.Failed++
		p.logOutcome(res.RunID, o)
	}
	p.Stats.succeeded.Add(uint64(res.Succeeded))
	p.Stats.failed.Add(uint64(res.Failed))

	res.Duration = time.Since(start)
	p.Stats.lastRun.Store(time.Now())

	p.logger.Info("msg", "Run complete",
		"component", "pipeline",
		"run_id", res.RunID,
		"events", res.Events,
		"filtered", res.Filtered,
		"calls", res.Calls,
		"batches", res.Batches,
		"succeeded", res.Succeeded,
		"failed", res.Failed,
		"duration", res.Duration)

	return res
}

// RunNDJSON decodes newline-delimited records from r and runs them. Records
// decoded before a read failure are still sent.
func (p *Pipeline) RunNDJSON(ctx context.Context, r io.Reader) (Result, error) {
	events, err := p.decoder.Decode(r)
	res := p.Run(ctx, events)
	if err != nil {
		return res, fmt.Errorf("decode input: %w", err)
	}
	return res, nil
}

// Build returns the calls for events without sending, for dry runs.
func (p *Pipeline) Build(events []core.Record) [][]core.Record {
	if p.filters != nil {
		events = p.filters.Select(events)
	}
	return p.builder.BuildEvents(events)
}

func (p *Pipeline) logOutcome(runID string, o core.Outcome) {
	switch {
	case o.Kind == core.OutcomeTransportError:
		p.logger.Warn("msg", fmt.Sprintf("Error delivering payload to Segment, got exception: %v", o.Err),
			"component", "pipeline",
			"run_id", runID,
			"batch_index", o.Index)
	case o.StatusCode == 400:
		p.logger.Warn("msg", "Error delivering payload to Segment, request too large / JSON is invalid.",
			"component", "pipeline",
			"run_id", runID,
			"batch_index", o.Index,
			"bytes", len(o.Batch))
	default:
		p.logger.Warn("msg", fmt.Sprintf("Error delivering payload to Segment, got [%d] [%s].", o.StatusCode, o.Body),
			"component", "pipeline",
			"run_id", runID,
			"batch_index", o.Index)
	}
}

// GetStats returns pipeline statistics, including the decoder and filters.
func (p *Pipeline) GetStats() map[string]any {
	stats := p.Stats.GetStats()
	stats["decoder"] = p.decoder.GetStats()
	stats["filters"] = p.filters.GetStats()
	return stats
}
