// FILE: src/internal/core/outcome.go
package core

import "fmt"

// OutcomeKind classifies the result of sending one batch.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeApplicationError
	OutcomeTransportError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeApplicationError:
		return "application_error"
	case OutcomeTransportError:
		return "transport_error"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is the classified result of one batch request.
type Outcome struct {
	Kind  OutcomeKind
	Index int    // position of the batch in the dispatched slice
	Batch string // serialized payload that was sent

	// Set for Success and ApplicationError
	StatusCode int
	Body       string

	// ApplicationError reason
	Reason string

	// TransportError cause
	Err error
}

// OK reports whether the batch was accepted.
func (o Outcome) OK() bool {
	return o.Kind == OutcomeSuccess
}

// Observer receives pipeline lifecycle notifications. Hooks are called
// synchronously; OnOutcome may be called from several goroutines.
type Observer interface {
	BeforeFormat(events []Record)
	AfterFormat(calls [][]Record)
	BeforeSend(batches []string)
	AfterSend(outcomes []Outcome)
	OnOutcome(outcome Outcome)
}

// NopObserver implements Observer with no-ops. Embed it to override a subset.
type NopObserver struct{}

func (NopObserver) BeforeFormat([]Record)  {}
func (NopObserver) AfterFormat([][]Record) {}
func (NopObserver) BeforeSend([]string)    {}
func (NopObserver) AfterSend([]Outcome)    {}
func (NopObserver) OnOutcome(Outcome)      {}
