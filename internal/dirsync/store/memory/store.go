package memory

import (
	"context"
	"maps"
	"sync"

	"helios/internal/dirsync"
	"helios/pkg/domain"
	"helios/pkg/platform/sentinel"
)

type key struct {
	org        domain.OrgID
	entityType dirsync.EntityType
	externalID string
}

// Store is an in-memory synced-entity cache for tests and local development.
// Upserts follow the same last-write-wins rule as the Postgres store.
type Store struct {
	mu       sync.RWMutex
	entities map[key]dirsync.SyncedEntity
}

func New() *Store {
	return &Store{entities: make(map[key]dirsync.SyncedEntity)}
}

func (s *Store) Upsert(_ context.Context, entities []dirsync.SyncedEntity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entities {
		k := key{org: e.OrganizationID, entityType: e.Type, externalID: e.ExternalID}
		if existing, ok := s.entities[k]; ok && e.LastSyncedAt.Before(existing.LastSyncedAt) {
			continue
		}
		e.Attributes = maps.Clone(e.Attributes)
		s.entities[k] = e
	}
	return nil
}

func (s *Store) Get(_ context.Context, orgID domain.OrgID, entityType dirsync.EntityType, externalID string) (*dirsync.SyncedEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entities[key{org: orgID, entityType: entityType, externalID: externalID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	e.Attributes = maps.Clone(e.Attributes)
	return &e, nil
}

// Count reports how many entities are cached.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}
