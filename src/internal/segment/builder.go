// FILE: src/internal/segment/builder.go
package segment

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"segbridge/src/internal/core"
	"segbridge/src/internal/format"
	"segbridge/src/internal/transform"

	"github.com/google/uuid"
	"github.com/lixenwraith/log"
)

// MessageIDFunc derives a messageId from a built call. Returning false
// leaves the call without one.
type MessageIDFunc func(kind core.CallKind, call core.Record) (string, bool)

// Options configures a Builder.
type Options struct {
	// MessageID selects the messageId derivation. Defaults to request_id.
	MessageID MessageIDStrategy

	// MessageIDFunc replaces the strategy's derivation when set.
	MessageIDFunc MessageIDFunc

	// Registry resolves transform names. Defaults to the built-ins.
	Registry *transform.Registry

	// Overrides are overlaid on the mapping of each call kind.
	Overrides map[core.CallKind]transform.Spec

	// Filter may rewrite the final mapping of each call kind.
	Filter func(kind core.CallKind, spec transform.Spec) transform.Spec
}

// Builder converts source events into destination calls. It is immutable
// after construction and safe for concurrent use.
type Builder struct {
	specs    map[core.CallKind]transform.Spec
	programs map[core.CallKind]*transform.Program
	groups   []*transform.Program
	strategy MessageIDStrategy
	idFunc   MessageIDFunc
	logger   *log.Logger
}

// NewBuilder compiles every call mapping and the registered group mappings.
// Unknown transform names fail here rather than per event.
func NewBuilder(groups *GroupRegistry, opts Options, logger *log.Logger) (*Builder, error) {
	strategy, err := ParseMessageIDStrategy(string(opts.MessageID))
	if err != nil {
		return nil, err
	}
	reg := opts.Registry
	if reg == nil {
		reg = transform.NewRegistry()
	}

	for kind := range opts.Overrides {
		if !kind.Valid() {
			return nil, fmt.Errorf("mapping override for unknown call kind: %s", kind)
		}
	}

	b := &Builder{
		specs:    make(map[core.CallKind]transform.Spec, len(core.Kinds)),
		programs: make(map[core.CallKind]*transform.Program, len(core.Kinds)),
		strategy: strategy,
		idFunc:   opts.MessageIDFunc,
		logger:   logger,
	}
	if b.idFunc == nil {
		b.idFunc = messageIDFunc(strategy)
	}

	for _, kind := range core.Kinds {
		spec, err := CallSpec(kind, strategy)
		if err != nil {
			return nil, err
		}
		if o, ok := opts.Overrides[kind]; ok {
			spec = spec.Overlay(o)
		}
		if opts.Filter != nil {
			spec = opts.Filter(kind, spec)
		}

		prog, err := transform.Compile(spec, reg)
		if err != nil {
			return nil, fmt.Errorf("%s mapping: %w", kind, err)
		}
		b.specs[kind] = spec
		b.programs[kind] = prog
	}

	for i, g := range groups.Specs() {
		spec := b.specs[core.KindGroup].Overlay(g)
		prog, err := transform.Compile(spec, reg)
		if err != nil {
			return nil, fmt.Errorf("group mapping %d: %w", i, err)
		}
		b.groups = append(b.groups, prog)
	}

	logger.Debug("msg", "Call builder initialized",
		"component", "segment_builder",
		"message_id", string(strategy),
		"groups", len(b.groups))

	return b, nil
}

// Identify builds the identify call for an event.
func (b *Builder) Identify(source core.Record) core.Record {
	return b.build(core.KindIdentify, b.programs[core.KindIdentify], source)
}

// Track builds the main call for an event: page for page views, track otherwise.
func (b *Builder) Track(source core.Record) core.Record {
	kind := MainKind(source)
	return b.build(kind, b.programs[kind], source)
}

// Groups builds one group call per registered group mapping, skipping
// those that resolve an empty groupId.
func (b *Builder) Groups(source core.Record) []core.Record {
	var calls []core.Record
	for _, prog := range b.groups {
		call := b.build(core.KindGroup, prog, source)
		if core.IsEmpty(call["groupId"]) {
			continue
		}
		calls = append(calls, call)
	}
	return calls
}

// BuildAll returns identify, then groups, then the main call.
func (b *Builder) BuildAll(source core.Record) []core.Record {
	calls := make([]core.Record, 0, len(b.groups)+2)
	calls = append(calls, b.Identify(source))
	calls = append(calls, b.Groups(source)...)
	calls = append(calls, b.Track(source))
	return calls
}

// BuildEvents maps every event. The result has one entry per event.
func (b *Builder) BuildEvents(events []core.Record) [][]core.Record {
	out := make([][]core.Record, 0, len(events))
	for _, ev := range events {
		out = append(out, b.BuildAll(ev))
	}
	return out
}

// Spec returns a copy of the compiled mapping for kind.
func (b *Builder) Spec(kind core.CallKind) transform.Spec {
	return b.specs[kind].Clone()
}

// GroupCount returns the number of compiled group mappings.
func (b *Builder) GroupCount() int {
	return len(b.groups)
}

// MainKind reports which call kind carries the event itself.
func MainKind(source core.Record) core.CallKind {
	if et, _ := source["event_type"].(string); et == PageViewEvent {
		return core.KindPage
	}
	return core.KindTrack
}

func (b *Builder) build(kind core.CallKind, prog *transform.Program, source core.Record) core.Record {
	call := prog.Apply(source)
	if _, ok := call["messageId"]; ok || kind == core.KindGroup {
		return call
	}
	if id, ok := b.idFunc(kind, call); ok {
		call["messageId"] = id
	}
	return call
}

func messageIDFunc(strategy MessageIDStrategy) MessageIDFunc {
	switch strategy {
	case MessageIDHash:
		return func(_ core.CallKind, call core.Record) (string, bool) {
			data, err := format.MarshalCompact(call)
			if err != nil {
				return "", false
			}
			sum := md5.Sum(data)
			return hex.EncodeToString(sum[:]), true
		}
	case MessageIDUUID:
		return func(_ core.CallKind, call core.Record) (string, bool) {
			data, err := format.MarshalCompact(call)
			if err != nil {
				return "", false
			}
			return uuid.NewSHA1(uuid.NameSpaceURL, data).String(), true
		}
	default:
		// request_id and source_hash are resolved by the mapping itself
		return func(core.CallKind, core.Record) (string, bool) { return "", false }
	}
}
