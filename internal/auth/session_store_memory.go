package auth

import (
	"context"
	"sync"
)

// NewInMemorySessionStore returns a SessionStore backed by an in-memory map.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{digests: make(map[string]string)}
}

// InMemorySessionStore implements SessionStore for tests and local development.
type InMemorySessionStore struct {
	mu      sync.Mutex
	digests map[string]string
}

func (s *InMemorySessionStore) Save(_ context.Context, userID, digest string) error {
	s.mu.Lock()
	s.digests[userID] = digest
	s.mu.Unlock()
	return nil
}

func (s *InMemorySessionStore) Swap(_ context.Context, userID, oldDigest, newDigest string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.digests[userID]
	if !ok || current != oldDigest {
		return ErrStaleSession
	}
	s.digests[userID] = newDigest
	return nil
}

func (s *InMemorySessionStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	delete(s.digests, userID)
	s.mu.Unlock()
	return nil
}

// Digest returns the stored digest for userID. Useful for tests.
func (s *InMemorySessionStore) Digest(userID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	digest, ok := s.digests[userID]
	return digest, ok
}
