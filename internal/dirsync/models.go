// Package dirsync keeps a local cache of directory entities approximately
// consistent with the upstream system of record by mining the responses that
// already flow through the gateway. It is a best-effort writer: nothing here
// may ever affect the response relayed to the caller.
package dirsync

import (
	"time"

	"helios/pkg/domain"
)

// EntityType classifies a cached directory entity.
type EntityType string

const (
	EntityUser       EntityType = "user"
	EntityGroup      EntityType = "group"
	EntityMembership EntityType = "membership"
)

func (t EntityType) IsValid() bool {
	return t == EntityUser || t == EntityGroup || t == EntityMembership
}

// SyncedEntity is one cached directory resource. Rows are keyed by
// (organization_id, entity_type, external_id); upserts are last-write-wins by
// LastSyncedAt, and extraction never deletes. Reconciliation of deletions is
// a separate concern.
type SyncedEntity struct {
	OrganizationID domain.OrgID
	Type           EntityType
	ExternalID     string
	Attributes     map[string]string
	LastSyncedAt   time.Time
}
