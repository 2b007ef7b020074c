// Package credentials is the read-only boundary to the portal's credential
// store. The gateway consumes delegated credentials; issuing, rotating, and
// encrypting them belongs to the portal's credential management surface.
package credentials

import (
	"context"
	"time"

	"helios/pkg/domain"
)

// DelegatedCredential lets the gateway act as an organization's
// administrator against the upstream provider for one scope.
type DelegatedCredential struct {
	OrganizationID domain.OrgID
	Scope          string
	ClientEmail    string
	PrivateKeyPEM  []byte
	TokenURI       string
	// Subject is the admin user the service account impersonates
	// (domain-wide delegation).
	Subject   string
	CreatedAt time.Time
}

// Store looks up delegated credentials.
// Implementations return sentinel.ErrNotConfigured when an organization has
// no credential for the requested scope.
type Store interface {
	GetDelegatedCredential(ctx context.Context, orgID domain.OrgID, scope string) (*DelegatedCredential, error)
}
