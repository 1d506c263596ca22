package session

import (
	"context"
	"sync"
	"time"

	"github.com/dyluth/warren/internal/strategy"
)

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex // guards the map only; sessions are guarded by locks
	sessions map[string]*Session
	locks    *keyedMutex
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		locks:    newKeyedMutex(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Get implements Store.
func (m *MemoryStore) Get(ctx context.Context, userID string) (*Session, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}

	unlock := m.locks.Lock(userID)
	defer unlock()

	return m.getOrCreate(userID).Clone(), nil
}

// SetStrategy implements Store.
func (m *MemoryStore) SetStrategy(ctx context.Context, userID string, kind strategy.Kind) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	if err := kind.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock := m.locks.Lock(userID)
	defer unlock()

	s := m.getOrCreate(userID)
	s.ActiveStrategy = kind
	s.LastUpdated = m.now()
	return nil
}

// RecordInteraction implements Store. A cancelled ctx leaves the session
// untouched.
func (m *MemoryStore) RecordInteraction(ctx context.Context, userID string, in Interaction) (*Session, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock := m.locks.Lock(userID)
	defer unlock()

	s := m.getOrCreate(userID)
	s.apply(in, m.now())
	return s.Clone(), nil
}

// EvictIdle drops sessions not updated within maxIdle and returns how many
// were removed. An evicted user starts over with a fresh session.
func (m *MemoryStore) EvictIdle(maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)

	m.mu.RLock()
	candidates := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		candidates = append(candidates, id)
	}
	m.mu.RUnlock()

	evicted := 0
	for _, id := range candidates {
		unlock := m.locks.Lock(id)
		m.mu.Lock()
		if s, ok := m.sessions[id]; ok && s.LastUpdated.Before(cutoff) {
			delete(m.sessions, id)
			evicted++
		}
		m.mu.Unlock()
		unlock()
	}
	return evicted
}

// Len returns the number of live sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Ping implements Store. The memory backend is always reachable.
func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	return nil
}

// getOrCreate must be called with the user's lock held.
func (m *MemoryStore) getOrCreate(userID string) *Session {
	m.mu.RLock()
	s, ok := m.sessions[userID]
	m.mu.RUnlock()
	if ok {
		return s
	}

	s = New(userID, m.now())
	m.mu.Lock()
	m.sessions[userID] = s
	m.mu.Unlock()
	return s
}
