// FILE: src/internal/pipeline/observer.go
package pipeline

import (
	"sync/atomic"

	"segbridge/src/internal/core"

	"github.com/lixenwraith/log"
)

// MultiObserver fans every notification out to each observer in order.
type MultiObserver []core.Observer

func (m MultiObserver) BeforeFormat(events []core.Record) {
	for _, o := range m {
		o.BeforeFormat(events)
	}
}

func (m MultiObserver) AfterFormat(calls [][]core.Record) {
	for _, o := range m {
		o.AfterFormat(calls)
	}
}

func (m MultiObserver) BeforeSend(batches []string) {
	for _, o := range m {
		o.BeforeSend(batches)
	}
}

func (m MultiObserver) AfterSend(outcomes []core.Outcome) {
	for _, o := range m {
		o.AfterSend(outcomes)
	}
}

func (m MultiObserver) OnOutcome(outcome core.Outcome) {
	for _, o := range m {
		o.OnOutcome(outcome)
	}
}

// StatsObserver counts request successes and failures as they settle.
type StatsObserver struct {
	core.NopObserver

	success         atomic.Uint64
	applicationErrs atomic.Uint64
	transportErrs   atomic.Uint64
	bytesAccepted   atomic.Uint64
}

func (s *StatsObserver) OnOutcome(outcome core.Outcome) {
	switch outcome.Kind {
	case core.OutcomeSuccess:
		s.success.Add(1)
		s.bytesAccepted.Add(uint64(len(outcome.Batch)))
	case core.OutcomeApplicationError:
		s.applicationErrs.Add(1)
	case core.OutcomeTransportError:
		s.transportErrs.Add(1)
	}
}

func (s *StatsObserver) GetStats() map[string]any {
	return map[string]any{
		"request_success":    s.success.Load(),
		"application_errors": s.applicationErrs.Load(),
		"transport_errors":   s.transportErrs.Load(),
		"bytes_accepted":     s.bytesAccepted.Load(),
	}
}

// LoggingObserver traces each stage at debug level.
type LoggingObserver struct {
	Logger *log.Logger
}

func (l LoggingObserver) BeforeFormat(events []core.Record) {
	l.Logger.Debug("msg", "Formatting events", "component", "pipeline", "events", len(events))
}

func (l LoggingObserver) AfterFormat(calls [][]core.Record) {
	l.Logger.Debug("msg", "Events formatted", "component", "pipeline", "events", len(calls))
}

func (l LoggingObserver) BeforeSend(batches []string) {
	l.Logger.Debug("msg", "Sending batches", "component", "pipeline", "batches", len(batches))
}

func (l LoggingObserver) AfterSend(outcomes []core.Outcome) {
	l.Logger.Debug("msg", "Batches settled", "component", "pipeline", "outcomes", len(outcomes))
}

func (l LoggingObserver) OnOutcome(outcome core.Outcome) {
	l.Logger.Debug("msg", "Batch outcome",
		"component", "pipeline",
		"batch_index", outcome.Index,
		"outcome", outcome.Kind.String(),
		"status", outcome.StatusCode)
}
