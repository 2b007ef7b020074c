package dirsync

import (
	"context"

	"helios/pkg/domain"
)

// Store persists the synced-entity cache. Upsert is last-write-wins by
// LastSyncedAt; it never deletes.
type Store interface {
	Upsert(ctx context.Context, entities []SyncedEntity) error
	Get(ctx context.Context, orgID domain.OrgID, entityType EntityType, externalID string) (*SyncedEntity, error)
}
