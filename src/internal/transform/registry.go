// FILE: src/internal/transform/registry.go
package transform

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownTransform is returned when an expression names a function that
// is not registered.
var ErrUnknownTransform = errors.New("unknown transform")

// Func converts a resolved value. Returning ok == false omits the field.
type Func func(value any) (any, bool)

// Registry maps transform names to functions. Lookups are safe for
// concurrent use; registration should finish before compilation.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry creates a registry holding the built-in transforms.
func NewRegistry() *Registry {
	r := &Registry{funcs: make(map[string]Func, len(builtins))}
	for name, fn := range builtins {
		r.funcs[name] = fn
	}
	return r
}

// Register adds or replaces a named transform.
func (r *Registry) Register(name string, fn Func) error {
	if name == "" {
		return fmt.Errorf("transform name cannot be empty")
	}
	if name == StaticFunc {
		return fmt.Errorf("transform name %q is reserved", name)
	}
	if fn == nil {
		return fmt.Errorf("transform %q: nil function", name)
	}

	r.mu.Lock()
	r.funcs[name] = fn
	r.mu.Unlock()
	return nil
}

// Get returns the transform registered under name.
func (r *Registry) Get(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Clone returns an independent copy of the registry.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c := &Registry{funcs: make(map[string]Func, len(r.funcs))}
	for name, fn := range r.funcs {
		c.funcs[name] = fn
	}
	return c
}
