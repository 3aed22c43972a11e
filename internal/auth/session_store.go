package auth

import (
	"context"
	"sync"
	"time"
)

// SessionStore keeps short-lived OAuth state values and revoked session ids.
type SessionStore interface {
	SaveState(ctx context.Context, state string, ttl time.Duration) error
	ConsumeState(ctx context.Context, state string) (bool, error)
	Revoke(ctx context.Context, sessionID string, until time.Time) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

// MemorySessionStore is a process-local SessionStore for single-instance
// deployments without Redis.
type MemorySessionStore struct {
	mu      sync.Mutex
	states  map[string]time.Time
	revoked map[string]time.Time
	now     func() time.Time
}

// NewMemorySessionStore returns an empty store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		states:  make(map[string]time.Time),
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *MemorySessionStore) SaveState(_ context.Context, state string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()
	s.states[state] = s.now().Add(ttl)
	return nil
}

func (s *MemorySessionStore) ConsumeState(_ context.Context, state string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expires, ok := s.states[state]
	delete(s.states, state)
	return ok && s.now().Before(expires), nil
}

func (s *MemorySessionStore) Revoke(_ context.Context, sessionID string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()
	s.revoked[sessionID] = until
	return nil
}

func (s *MemorySessionStore) IsRevoked(_ context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.revoked[sessionID]
	return ok && s.now().Before(until), nil
}

// prune requires s.mu.
func (s *MemorySessionStore) prune() {
	now := s.now()
	for k, exp := range s.states {
		if !now.Before(exp) {
			delete(s.states, k)
		}
	}
	for k, exp := range s.revoked {
		if !now.Before(exp) {
			delete(s.revoked, k)
		}
	}
}
