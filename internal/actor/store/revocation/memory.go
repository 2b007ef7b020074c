package revocation

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory revocation list for tests.
type MemoryStore struct {
	mu      sync.RWMutex
	revoked map[string]bool
}

func NewMemory() *MemoryStore {
	return &MemoryStore{revoked: make(map[string]bool)}
}

func (s *MemoryStore) Revoke(jti string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[jti] = true
}

func (s *MemoryStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revoked[jti], nil
}
