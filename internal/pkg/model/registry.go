package model

import "sync"

// Registry is the concurrent (Method -> Model) map of spec.md §4.7/§5: the
// only mutable global state of the analysis. Workers read their own
// method's current Model at iteration start, compute a new Model purely
// locally, then atomically Set it; Method is left generic so this package
// does not depend on the frontend's method identity representation.
// Grounded on internal/pkg/intern's Table[K,T] double-checked-locking
// pattern, generalized from "insert once, read many" to "read, compute,
// overwrite many times".
type Registry[Method comparable] struct {
	mu      sync.RWMutex
	models  map[Method]*Model
}

func NewRegistry[Method comparable]() *Registry[Method] {
	return &Registry[Method]{models: map[Method]*Model{}}
}

// Get returns the current Model for m, or a fresh empty Model if none has
// been set yet.
func (r *Registry[Method]) Get(m Method) *Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if model, ok := r.models[m]; ok {
		return model
	}
	return New()
}

// Set overwrites m's Model.
func (r *Registry[Method]) Set(m Method, model *Model) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[m] = model
}

// JoinInto atomically joins delta into m's current Model and returns whether
// the result grew (!new.Leq(previous)), the signal the fixpoint driver uses
// to decide whether to re-enqueue m's dependents (spec.md §5).
func (r *Registry[Method]) JoinInto(m Method, delta *Model) (grew bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	previous, ok := r.models[m]
	if !ok {
		previous = New()
	}
	next := previous.Join(delta)
	r.models[m] = next
	return !next.Leq(previous)
}

// Methods returns every method currently present in the registry.
func (r *Registry[Method]) Methods() []Method {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Method, 0, len(r.models))
	for m := range r.models {
		out = append(out, m)
	}
	return out
}

// Join merges another registry's entries into a new registry, method by
// method.
func (r *Registry[Method]) Join(other *Registry[Method]) *Registry[Method] {
	out := NewRegistry[Method]()
	r.mu.RLock()
	for m, model := range r.models {
		out.models[m] = model
	}
	r.mu.RUnlock()
	other.mu.RLock()
	defer other.mu.RUnlock()
	for m, model := range other.models {
		if existing, ok := out.models[m]; ok {
			out.models[m] = existing.Join(model)
		} else {
			out.models[m] = model
		}
	}
	return out
}
