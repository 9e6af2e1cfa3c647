// FILE: src/internal/transform/expr.go
package transform

import (
	"fmt"
	"strconv"
	"strings"

	"segbridge/src/internal/core"
)

// StaticFunc marks an expression whose path is returned as a literal.
const StaticFunc = "static"

// Expr is a parsed path expression of the form "<path>" or "<path>|<func>".
type Expr struct {
	Path string
	Func string
}

// ParseExpr splits s on the first '|'.
func ParseExpr(s string) Expr {
	path, fn, _ := strings.Cut(s, "|")
	return Expr{Path: path, Func: fn}
}

func (e Expr) String() string {
	if e.Func == "" {
		return e.Path
	}
	return e.Path + "|" + e.Func
}

// PathExpr is an expression bound to its transform function.
type PathExpr struct {
	expr     Expr
	segments []string
	fn       Func
	static   bool
}

// CompileExpr parses s and resolves its transform against reg.
func CompileExpr(s string, reg *Registry) (*PathExpr, error) {
	e := ParseExpr(s)
	p := &PathExpr{expr: e}

	switch {
	case e.Func == StaticFunc:
		p.static = true
		return p, nil
	case e.Func != "":
		fn, ok := reg.Get(e.Func)
		if !ok {
			return nil, fmt.Errorf("%w: %q in expression %q", ErrUnknownTransform, e.Func, s)
		}
		p.fn = fn
	}

	if e.Path != "" {
		p.segments = strings.Split(e.Path, ".")
	}
	return p, nil
}

// Expr returns the parsed expression.
func (p *PathExpr) Expr() Expr {
	return p.expr
}

// Resolve walks source along the path and applies the transform. A missing
// segment or a null value at any depth yields ok == false.
func (p *PathExpr) Resolve(source any) (any, bool) {
	if p.static {
		return p.expr.Path, true
	}

	// Empty path addresses the whole record, which only a transform can use
	if len(p.segments) == 0 {
		if p.fn == nil || source == nil {
			return nil, false
		}
		return p.fn(source)
	}

	value, ok := walk(source, p.segments)
	if !ok {
		return nil, false
	}
	if p.fn != nil {
		return p.fn(value)
	}
	return value, true
}

func walk(cur any, segments []string) (any, bool) {
	for _, seg := range segments {
		switch node := cur.(type) {
		case map[string]any:
			next, exists := node[seg]
			if !exists {
				return nil, false
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
		if cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// Resolver evaluates ad hoc expressions against a registry.
type Resolver struct {
	reg *Registry
}

// NewResolver creates a resolver. A nil registry uses the built-ins.
func NewResolver(reg *Registry) *Resolver {
	if reg == nil {
		reg = NewRegistry()
	}
	return &Resolver{reg: reg}
}

// Fetch resolves expr against source. The error is reserved for unknown
// transform names; missing data is reported through ok.
func (r *Resolver) Fetch(source core.Record, expr string) (value any, ok bool, err error) {
	p, err := CompileExpr(expr, r.reg)
	if err != nil {
		return nil, false, err
	}
	value, ok = p.Resolve(source)
	return value, ok, nil
}
