package actor

import (
	"context"

	"helios/pkg/domain"
)

// Stores are interface-driven to keep the resolver testable and to allow
// swapping in-memory and PostgreSQL persistence without rewiring callers.

// APIKeyStore looks up stored service/vendor keys.
// Implementations return sentinel.ErrNotFound for unknown IDs.
type APIKeyStore interface {
	FindByID(ctx context.Context, id domain.APIKeyID) (*APIKey, error)
}

// TokenRevocationChecker checks whether a session token's jti was revoked.
type TokenRevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
