package memory

import (
	"context"
	"slices"
	"sync"

	"helios/internal/audit"
)

// Store is an in-memory audit store for tests and local development.
type Store struct {
	mu      sync.RWMutex
	records []audit.Record
}

func New() *Store {
	return &Store{}
}

func (s *Store) Append(_ context.Context, rec audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *Store) List(_ context.Context, q audit.Query) ([]audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Record
	for _, rec := range s.records {
		if !q.OrganizationID.IsNil() && rec.OrganizationID != q.OrganizationID {
			continue
		}
		if !q.From.IsZero() && rec.CreatedAt.Before(q.From) {
			continue
		}
		if !q.Until.IsZero() && !rec.CreatedAt.Before(q.Until) {
			continue
		}
		if len(q.ActorTypes) > 0 && !slices.Contains(q.ActorTypes, rec.ActorType) {
			continue
		}
		if q.ActorID != "" && rec.ActorID != q.ActorID {
			continue
		}
		if q.Family != "" && rec.Family != q.Family {
			continue
		}
		out = append(out, rec)
	}

	slices.SortFunc(out, func(a, b audit.Record) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// All returns every stored record in insertion order.
func (s *Store) All() []audit.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records)
}
