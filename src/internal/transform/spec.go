// FILE: src/internal/transform/spec.go
package transform

// NodeKind tags a mapping branch.
type NodeKind uint8

const (
	// NodeOmit never produces a field.
	NodeOmit NodeKind = iota
	// NodePath resolves an expression and assigns it under the key.
	NodePath
	// NodeMerge splices the resolved value into the enclosing level.
	NodeMerge
	// NodeNested transforms a sub-specification and assigns it under the key.
	NodeNested
)

func (k NodeKind) String() string {
	switch k {
	case NodeOmit:
		return "omit"
	case NodePath:
		return "path"
	case NodeMerge:
		return "merge"
	case NodeNested:
		return "nested"
	default:
		return "unknown"
	}
}

// Field is one branch of a Spec. Merge fields carry no key and either an
// expression or a sub-specification.
type Field struct {
	Key  string
	Kind NodeKind
	Expr string
	Spec Spec
}

// Spec is an ordered mapping specification.
type Spec []Field

// Omit declares a field that is never written.
func Omit(key string) Field {
	return Field{Key: key, Kind: NodeOmit}
}

// Path maps key to the value of expr. An empty expression omits the field.
func Path(key, expr string) Field {
	if expr == "" {
		return Omit(key)
	}
	return Field{Key: key, Kind: NodePath, Expr: expr}
}

// Merge splices the value of expr into the enclosing level.
func Merge(expr string) Field {
	return Field{Kind: NodeMerge, Expr: expr}
}

// MergeSpec splices the result of spec into the enclosing level.
func MergeSpec(spec Spec) Field {
	return Field{Kind: NodeMerge, Spec: spec}
}

// Nested maps key to the result of spec. An empty spec omits the field.
func Nested(key string, spec Spec) Field {
	if len(spec) == 0 {
		return Omit(key)
	}
	return Field{Key: key, Kind: NodeNested, Spec: spec}
}

// Get returns the keyed field named key.
func (s Spec) Get(key string) (Field, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Kind != NodeMerge && s[i].Key == key {
			return s[i], true
		}
	}
	return Field{}, false
}

// Lookup walks nested fields by key.
func (s Spec) Lookup(keys ...string) (Field, bool) {
	cur := s
	var f Field
	for i, key := range keys {
		var ok bool
		f, ok = cur.Get(key)
		if !ok {
			return Field{}, false
		}
		if i < len(keys)-1 {
			if f.Kind != NodeNested {
				return Field{}, false
			}
			cur = f.Spec
		}
	}
	return f, len(keys) > 0
}

// Set returns a copy of s with f replacing the field of the same key in
// place, or appended when the key is new. Merge fields are always appended.
func (s Spec) Set(f Field) Spec {
	out := s.Clone()
	if f.Kind != NodeMerge {
		for i := range out {
			if out[i].Kind != NodeMerge && out[i].Key == f.Key {
				out[i] = f
				return out
			}
		}
	}
	return append(out, f)
}

// Overlay applies every field of o over s with Set semantics. Top-level keys
// of o replace those of s; nested specs are not merged.
func (s Spec) Overlay(o Spec) Spec {
	out := s.Clone()
	for _, f := range o {
		out = out.Set(f)
	}
	return out
}

// Clone deep-copies the spec tree.
func (s Spec) Clone() Spec {
	if s == nil {
		return nil
	}
	out := make(Spec, len(s))
	for i, f := range s {
		f.Spec = f.Spec.Clone()
		out[i] = f
	}
	return out
}

// Without returns a copy of s with the keyed field replaced by an omission.
func (s Spec) Without(key string) Spec {
	return s.Set(Omit(key))
}

// Expressions lists every expression in the tree, depth first.
func (s Spec) Expressions() []string {
	var exprs []string
	for _, f := range s {
		if f.Expr != "" {
			exprs = append(exprs, f.Expr)
		}
		exprs = append(exprs, f.Spec.Expressions()...)
	}
	return exprs
}
