package keys

import (
	"context"
	"sync"

	"helios/internal/actor"
	"helios/pkg/domain"
	"helios/pkg/platform/sentinel"
)

// MemoryStore is an in-memory APIKeyStore for tests.
type MemoryStore struct {
	mu   sync.RWMutex
	keys map[domain.APIKeyID]*actor.APIKey
}

func NewMemory() *MemoryStore {
	return &MemoryStore{keys: make(map[domain.APIKeyID]*actor.APIKey)}
}

// Put stores or replaces a key.
func (s *MemoryStore) Put(key *actor.APIKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *key
	s.keys[key.ID] = &cp
}

func (s *MemoryStore) FindByID(_ context.Context, id domain.APIKeyID) (*actor.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.keys[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *key
	return &cp, nil
}
