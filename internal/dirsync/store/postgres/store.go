package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"helios/internal/dirsync"
	"helios/pkg/domain"
	"helios/pkg/platform/sentinel"
)

// Store persists synced entities in the synced_entities table, which is also
// read by the portal's directory endpoints.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Upsert writes each entity with a single conflict-resolving statement.
// The WHERE clause makes the later last_synced_at win deterministically when
// two extractions race on the same key.
func (s *Store) Upsert(ctx context.Context, entities []dirsync.SyncedEntity) error {
	if len(entities) == 0 {
		return nil
	}

	query := `
		INSERT INTO synced_entities (
			organization_id, entity_type, external_id, attributes, last_synced_at
		)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (organization_id, entity_type, external_id) DO UPDATE
		SET attributes = excluded.attributes,
		    last_synced_at = excluded.last_synced_at
		WHERE excluded.last_synced_at >= synced_entities.last_synced_at
	`

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert tx: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entities {
		attrs, err := json.Marshal(e.Attributes)
		if err != nil {
			return fmt.Errorf("marshal attributes: %w", err)
		}
		_, err = tx.ExecContext(ctx, query,
			uuid.UUID(e.OrganizationID),
			string(e.Type),
			e.ExternalID,
			attrs,
			e.LastSyncedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert synced entity %s/%s: %w", e.Type, e.ExternalID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) Get(ctx context.Context, orgID domain.OrgID, entityType dirsync.EntityType, externalID string) (*dirsync.SyncedEntity, error) {
	query := `
		SELECT attributes, last_synced_at
		FROM synced_entities
		WHERE organization_id = $1 AND entity_type = $2 AND external_id = $3
	`

	var (
		rawAttrs []byte
		entity   = dirsync.SyncedEntity{
			OrganizationID: orgID,
			Type:           entityType,
			ExternalID:     externalID,
		}
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(orgID), string(entityType), externalID).
		Scan(&rawAttrs, &entity.LastSyncedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query synced entity: %w", err)
	}
	if err := json.Unmarshal(rawAttrs, &entity.Attributes); err != nil {
		return nil, fmt.Errorf("unmarshal attributes: %w", err)
	}
	return &entity, nil
}
