// FILE: src/internal/transform/program.go
package transform

import (
	"fmt"
	"strconv"

	"segbridge/src/internal/core"
)

// Program is a compiled Spec. It is immutable and safe for concurrent use.
type Program struct {
	fields []compiledField
}

type compiledField struct {
	key  string
	kind NodeKind
	expr *PathExpr
	sub  *Program
}

// Compile validates every transform name in spec against reg and returns
// an executable program. A nil registry uses the built-ins.
func Compile(spec Spec, reg *Registry) (*Program, error) {
	if reg == nil {
		reg = NewRegistry()
	}
	return compile(spec, reg, "")
}

func compile(spec Spec, reg *Registry, prefix string) (*Program, error) {
	p := &Program{fields: make([]compiledField, 0, len(spec))}

	for i, f := range spec {
		where := fieldPath(prefix, f, i)
		cf := compiledField{key: f.Key, kind: f.Kind}

		switch f.Kind {
		case NodeOmit:
			continue

		case NodePath:
			if f.Expr == "" {
				continue
			}
			expr, err := CompileExpr(f.Expr, reg)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", where, err)
			}
			cf.expr = expr

		case NodeNested:
			if len(f.Spec) == 0 {
				continue
			}
			sub, err := compile(f.Spec, reg, where)
			if err != nil {
				return nil, err
			}
			cf.sub = sub

		case NodeMerge:
			switch {
			case f.Expr != "":
				expr, err := CompileExpr(f.Expr, reg)
				if err != nil {
					return nil, fmt.Errorf("field %s: %w", where, err)
				}
				cf.expr = expr
			case len(f.Spec) > 0:
				sub, err := compile(f.Spec, reg, where)
				if err != nil {
					return nil, err
				}
				cf.sub = sub
			default:
				continue
			}

		default:
			return nil, fmt.Errorf("field %s: unknown node kind %d", where, f.Kind)
		}

		p.fields = append(p.fields, cf)
	}

	return p, nil
}

func fieldPath(prefix string, f Field, index int) string {
	name := f.Key
	if f.Kind == NodeMerge {
		name = "[" + strconv.Itoa(index) + "]"
	}
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// Transform compiles spec and applies it to source in one step.
func Transform(source core.Record, spec Spec, reg *Registry) (core.Record, error) {
	p, err := Compile(spec, reg)
	if err != nil {
		return nil, err
	}
	return p.Apply(source), nil
}

// Apply maps source to a destination record. Source is never mutated and
// the result shares no containers with it. A level made only of merged
// sequence items has no keyed form and yields an empty record; use Eval to
// observe it.
func (p *Program) Apply(source core.Record) core.Record {
	out, _ := p.Eval(source).(map[string]any)
	if out == nil {
		return core.Record{}
	}
	return out
}

// Eval maps source and returns the level in its natural shape: a record
// when any key was written, a sequence when only merged sequence items
// were produced, nil when nothing was.
func (p *Program) Eval(source any) any {
	var lvl level
	for _, f := range p.fields {
		switch f.kind {
		case NodePath:
			value, ok := f.expr.Resolve(source)
			if !ok || value == nil || core.IsEmptyCollection(value) {
				continue
			}
			lvl.set(f.key, core.Clone(value))

		case NodeNested:
			value := f.sub.Eval(source)
			if core.IsEmpty(value) {
				continue
			}
			lvl.set(f.key, value)

		case NodeMerge:
			var value any
			if f.expr != nil {
				var ok bool
				if value, ok = f.expr.Resolve(source); !ok {
					continue
				}
				value = core.Clone(value)
			} else {
				value = f.sub.Eval(source)
			}
			if core.IsEmpty(value) {
				continue
			}
			lvl.merge(value)
		}
	}
	return lvl.finish()
}

// level accumulates one destination object.
type level struct {
	named map[string]any
	items []any
}

func (l *level) set(key string, value any) {
	if l.named == nil {
		l.named = make(map[string]any)
	}
	l.named[key] = value
}

// merge splices records key by key and sequences item by item. Scalars
// have nothing to splice.
func (l *level) merge(value any) {
	switch t := value.(type) {
	case map[string]any:
		for k, v := range t {
			l.set(k, v)
		}
	case []any:
		l.items = append(l.items, t...)
	}
}

func (l *level) finish() any {
	switch {
	case len(l.named) == 0 && len(l.items) == 0:
		return nil
	case len(l.named) == 0:
		return l.items
	}
	for i, item := range l.items {
		l.named[strconv.Itoa(i)] = item
	}
	return l.named
}
