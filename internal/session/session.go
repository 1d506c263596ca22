// Package session keeps per-user orchestration state: the active strategy
// and the interaction history that feeds each request's shared context.
//
// Two Store implementations are provided. MemoryStore is the default for a
// single process; RedisStore shares sessions between processes. Both
// linearize writes per user through a keyed lock, so distinct users never
// contend with each other.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dyluth/warren/internal/strategy"
)

// ErrEmptyUserID is returned when an operation is called without a user id.
var ErrEmptyUserID = errors.New("user id cannot be empty")

// Scratch keys written by RecordInteraction.
const (
	ScratchLastStrategy    = "last_strategy"
	ScratchLastSpecialists = "last_specialists"
)

// Session is the orchestration state of one user.
type Session struct {
	UserID           string            `json:"user_id"`
	ActiveStrategy   strategy.Kind     `json:"active_strategy"`
	InteractionCount int64             `json:"interaction_count"` // successful Handle calls, never decremented
	CreatedAt        time.Time         `json:"created_at"`
	LastUpdated      time.Time         `json:"last_updated"`
	Scratch          map[string]string `json:"scratch,omitempty"` // carried into every SharedContext
}

// Interaction describes one successfully completed request.
type Interaction struct {
	Strategy      strategy.Kind
	SpecialistIDs []string
}

// Store owns every Session. Returned sessions are copies; mutating them has
// no effect on the store.
type Store interface {
	// Get returns the session for userID, creating it with defaults on
	// first contact.
	Get(ctx context.Context, userID string) (*Session, error)

	// SetStrategy overwrites the active strategy. Setting the current value
	// again is a no-op apart from LastUpdated.
	SetStrategy(ctx context.Context, userID string, kind strategy.Kind) error

	// RecordInteraction increments InteractionCount and updates the scratch
	// entries in one atomic step.
	RecordInteraction(ctx context.Context, userID string, in Interaction) (*Session, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// New returns the session a user starts with.
func New(userID string, now time.Time) *Session {
	return &Session{
		UserID:         userID,
		ActiveStrategy: strategy.DefaultKind,
		CreatedAt:      now,
		LastUpdated:    now,
		Scratch:        map[string]string{},
	}
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	out := *s
	out.Scratch = make(map[string]string, len(s.Scratch))
	for k, v := range s.Scratch {
		out.Scratch[k] = v
	}
	return &out
}

// apply records in on s.
func (s *Session) apply(in Interaction, now time.Time) {
	s.InteractionCount++
	s.LastUpdated = now
	if s.Scratch == nil {
		s.Scratch = map[string]string{}
	}
	if in.Strategy != "" {
		s.Scratch[ScratchLastStrategy] = string(in.Strategy)
	}
	if len(in.SpecialistIDs) > 0 {
		s.Scratch[ScratchLastSpecialists] = strings.Join(in.SpecialistIDs, ",")
	}
}

func validateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrEmptyUserID
	}
	return nil
}
