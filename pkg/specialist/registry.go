package specialist

import (
	"fmt"
	"sync"
)

// Registry holds the named specialists of a warren process.
// Registration is a startup-only phase: once Seal is called the registry is
// read-only and safe for concurrent lookups without contention.
type Registry struct {
	mu     sync.RWMutex
	order  []*Specialist
	byID   map[string]int // id -> position in order
	sealed bool
}

// NewRegistry creates an empty, unsealed registry.
func NewRegistry() *Registry {
	return &Registry{
		byID: make(map[string]int),
	}
}

// Register adds a specialist. Returns *DuplicateIDError if the id is taken,
// ErrRegistrySealed after Seal, or a validation error.
func (r *Registry) Register(s Specialist) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid specialist: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return ErrRegistrySealed
	}
	if _, exists := r.byID[s.ID]; exists {
		return &DuplicateIDError{ID: s.ID}
	}

	r.byID[s.ID] = len(r.order)
	r.order = append(r.order, s.clone())
	return nil
}

// Seal ends the registration phase. Safe to call more than once.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Resolve returns the specialist registered under id.
func (r *Registry) Resolve(id string) (*Specialist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pos, ok := r.byID[id]
	if !ok {
		return nil, &UnknownSpecialistError{ID: id}
	}
	return r.order[pos], nil
}

// Index returns the registration position of id, or -1 if absent.
func (r *Registry) Index(id string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if pos, ok := r.byID[id]; ok {
		return pos
	}
	return -1
}

// ByCapability returns every specialist carrying tag, in registration order.
func (r *Registry) ByCapability(tag string) []*Specialist {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []*Specialist
	for _, s := range r.order {
		if s.HasTag(tag) {
			matches = append(matches, s)
		}
	}
	return matches
}

// IDs returns all registered ids in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, len(r.order))
	for i, s := range r.order {
		ids[i] = s.ID
	}
	return ids
}

// Len returns the number of registered specialists.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
