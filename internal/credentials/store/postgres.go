package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"helios/internal/credentials"
	"helios/pkg/domain"
	"helios/pkg/platform/sentinel"
)

// PostgresStore reads delegated credentials from the delegated_credentials
// table. Rows are written by the portal's credential management surface.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetDelegatedCredential(ctx context.Context, orgID domain.OrgID, scope string) (*credentials.DelegatedCredential, error) {
	query := `
		SELECT organization_id, scope, client_email, private_key_pem, token_uri, subject, created_at
		FROM delegated_credentials
		WHERE organization_id = $1 AND scope = $2
	`
	var (
		cred credentials.DelegatedCredential
		org  uuid.UUID
		pem  string
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(orgID), scope).Scan(
		&org, &cred.Scope, &cred.ClientEmail, &pem, &cred.TokenURI, &cred.Subject, &cred.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotConfigured
		}
		return nil, fmt.Errorf("get delegated credential: %w", err)
	}
	cred.OrganizationID = domain.OrgID(org)
	cred.PrivateKeyPEM = []byte(pem)
	return &cred, nil
}
