// FILE: src/internal/segment/groups.go
package segment

import (
	"sync"

	"segbridge/src/internal/transform"
)

// GroupRegistry collects group call mappings. Registration is append-only;
// a Builder snapshots the list when it is constructed.
type GroupRegistry struct {
	mu    sync.RWMutex
	specs []transform.Spec
}

// NewGroupRegistry creates an empty registry.
func NewGroupRegistry() *GroupRegistry {
	return &GroupRegistry{}
}

// Register appends a partial group mapping. It is overlaid on the base
// group mapping when the builder compiles it.
func (r *GroupRegistry) Register(spec transform.Spec) {
	r.mu.Lock()
	r.specs = append(r.specs, spec.Clone())
	r.mu.Unlock()
}

// RegisterField registers the shorthand mapping {groupId: path, traits: traits}.
func (r *GroupRegistry) RegisterField(path string, traits transform.Spec) {
	r.Register(transform.Spec{
		transform.Path("groupId", path),
		transform.Nested("traits", traits),
	})
}

// Specs returns a copy of the registered mappings in registration order.
func (r *GroupRegistry) Specs() []transform.Spec {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]transform.Spec, len(r.specs))
	for i, s := range r.specs {
		out[i] = s.Clone()
	}
	return out
}

// Len returns the number of registered mappings.
func (r *GroupRegistry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.specs)
}
