// Package strategy implements the three coordination modes that decide which
// specialists answer a request and how their answers are combined:
//
//   - route: pick the single best-matching specialist
//   - coordinate: ask every specialist in parallel and merge the answers
//   - collaborate: ask specialists in sequence, each seeing its predecessors
package strategy

import (
	"fmt"
	"strings"

	"github.com/dyluth/warren/pkg/specialist"
)

// Kind is the closed set of coordination modes.
type Kind string

const (
	// KindRoute invokes exactly one specialist chosen by capability overlap.
	KindRoute Kind = "route"

	// KindCoordinate invokes all eligible specialists independently and
	// synthesises a sectioned report.
	KindCoordinate Kind = "coordinate"

	// KindCollaborate chains specialists so each refines its predecessors.
	KindCollaborate Kind = "collaborate"
)

// DefaultKind is the strategy a fresh session starts with.
const DefaultKind = KindRoute

// Kinds returns every defined kind in presentation order.
func Kinds() []Kind {
	return []Kind{KindRoute, KindCoordinate, KindCollaborate}
}

// Validate checks if the Kind is one of the defined variants.
func (k Kind) Validate() error {
	switch k {
	case KindRoute, KindCoordinate, KindCollaborate:
		return nil
	default:
		return &UnknownStrategyError{Tag: string(k)}
	}
}

// ParseKind converts a user supplied tag into a Kind.
// Matching ignores case and surrounding whitespace.
func ParseKind(tag string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(tag)))
	if err := k.Validate(); err != nil {
		return "", &UnknownStrategyError{Tag: tag}
	}
	return k, nil
}

// Strategy binds a Kind to the ordered specialists eligible under it.
// SpecialistIDs order is priority order for route tie-breaks.
type Strategy struct {
	Kind          Kind
	SpecialistIDs []string
	Synthesize    bool // collaborate only: merge all replies and list points of difference
}

// Validate checks the strategy against the registry. Every referenced id
// must resolve and appear once.
func (s Strategy) Validate(reg *specialist.Registry) error {
	if err := s.Kind.Validate(); err != nil {
		return err
	}
	if len(s.SpecialistIDs) == 0 {
		return fmt.Errorf("strategy '%s': at least one specialist is required", s.Kind)
	}

	seen := make(map[string]bool, len(s.SpecialistIDs))
	for _, id := range s.SpecialistIDs {
		if seen[id] {
			return fmt.Errorf("strategy '%s': specialist '%s' listed more than once", s.Kind, id)
		}
		seen[id] = true

		if _, err := reg.Resolve(id); err != nil {
			return fmt.Errorf("strategy '%s': %w", s.Kind, err)
		}
	}

	if s.Synthesize && s.Kind != KindCollaborate {
		return fmt.Errorf("strategy '%s': synthesize is only supported for collaborate", s.Kind)
	}
	return nil
}

// Set holds exactly one binding per Kind, validated at startup.
type Set struct {
	byKind map[Kind]Strategy
}

// NewSet validates the bindings against the registry. Every Kind must be
// bound exactly once; any violation is a configuration error.
func NewSet(reg *specialist.Registry, strategies ...Strategy) (*Set, error) {
	byKind := make(map[Kind]Strategy, len(strategies))
	for _, s := range strategies {
		if err := s.Validate(reg); err != nil {
			return nil, err
		}
		if _, dup := byKind[s.Kind]; dup {
			return nil, fmt.Errorf("strategy '%s' bound more than once", s.Kind)
		}
		s.SpecialistIDs = append([]string(nil), s.SpecialistIDs...)
		byKind[s.Kind] = s
	}

	for _, k := range Kinds() {
		if _, ok := byKind[k]; !ok {
			return nil, fmt.Errorf("strategy '%s' has no specialists bound", k)
		}
	}

	return &Set{byKind: byKind}, nil
}

// Get returns the binding for kind.
func (s *Set) Get(kind Kind) (Strategy, error) {
	st, ok := s.byKind[kind]
	if !ok {
		return Strategy{}, &UnknownStrategyError{Tag: string(kind)}
	}
	return st, nil
}
