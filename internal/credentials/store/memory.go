package store

import (
	"context"
	"sync"

	"helios/internal/credentials"
	"helios/pkg/domain"
	"helios/pkg/platform/sentinel"
)

type memoryKey struct {
	org   domain.OrgID
	scope string
}

// MemoryStore is an in-memory credential store for tests.
type MemoryStore struct {
	mu    sync.RWMutex
	creds map[memoryKey]*credentials.DelegatedCredential
}

func NewMemory() *MemoryStore {
	return &MemoryStore{creds: make(map[memoryKey]*credentials.DelegatedCredential)}
}

func (s *MemoryStore) Put(cred *credentials.DelegatedCredential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *cred
	s.creds[memoryKey{cred.OrganizationID, cred.Scope}] = &cp
}

func (s *MemoryStore) GetDelegatedCredential(_ context.Context, orgID domain.OrgID, scope string) (*credentials.DelegatedCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.creds[memoryKey{orgID, scope}]
	if !ok {
		return nil, sentinel.ErrNotConfigured
	}
	cp := *cred
	return &cp, nil
}
