package keys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"helios/internal/actor"
	"helios/pkg/domain"
	"helios/pkg/platform/sentinel"
)

// PostgresStore reads API keys from the api_keys table. Key management
// (create/revoke) belongs to the admin surface; the gateway only reads.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.APIKeyID) (*actor.APIKey, error) {
	query := `
		SELECT id, organization_id, kind, name, secret_hash, created_at, revoked_at
		FROM api_keys
		WHERE id = $1
	`
	var (
		key       actor.APIKey
		keyID     uuid.UUID
		orgID     uuid.UUID
		kind      string
		revokedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(id)).Scan(
		&keyID, &orgID, &kind, &key.Name, &key.SecretHash, &key.CreatedAt, &revokedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find api key: %w", err)
	}

	key.ID = domain.APIKeyID(keyID)
	key.OrganizationID = domain.OrgID(orgID)
	key.Kind = actor.Type(kind)
	if revokedAt.Valid {
		t := revokedAt.Time
		key.RevokedAt = &t
	}
	return &key, nil
}
