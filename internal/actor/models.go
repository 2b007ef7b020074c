package actor

import (
	"strings"
	"time"

	"helios/pkg/domain"
	dErrors "helios/pkg/domain-errors"
)

// Type classifies the resolved caller identity.
type Type string

const (
	// TypeSession is a human operator authenticated with a portal session token.
	TypeSession Type = "session"
	// TypeService is an automated integration holding a service API key.
	// Service actors have no human attribution.
	TypeService Type = "service"
	// TypeVendor is a human at a partner MSP acting through a shared vendor
	// key. Vendor calls carry explicit per-request attribution.
	TypeVendor Type = "vendor"
)

func (t Type) IsValid() bool {
	return t == TypeSession || t == TypeService || t == TypeVendor
}

// Context is the resolved caller identity for a single gateway request.
// It is request-scoped and never persisted; the audit record copies the
// fields it needs.
//
// Invariants:
//   - OrganizationID is non-nil
//   - ActorID is non-empty
//   - a vendor Context always carries DisplayName and Email
type Context struct {
	OrganizationID  domain.OrgID
	Type            Type
	ActorID         string
	DisplayName     string
	Email           string
	ClientReference string
}

// NewSessionContext builds the identity for a session-token caller.
func NewSessionContext(orgID domain.OrgID, actorID string) (Context, error) {
	if orgID.IsNil() || actorID == "" {
		return Context{}, dErrors.New(dErrors.CodeInvariantViolation, "session actor requires organization and actor id")
	}
	return Context{OrganizationID: orgID, Type: TypeSession, ActorID: actorID}, nil
}

// NewServiceContext builds the identity for a service-key caller.
func NewServiceContext(orgID domain.OrgID, keyID domain.APIKeyID) (Context, error) {
	if orgID.IsNil() || keyID.IsNil() {
		return Context{}, dErrors.New(dErrors.CodeInvariantViolation, "service actor requires organization and key id")
	}
	return Context{OrganizationID: orgID, Type: TypeService, ActorID: keyID.String()}, nil
}

// NewVendorContext builds the identity for a vendor-key caller. Both
// displayName and email are mandatory; a vendor Context without them is
// never constructed.
func NewVendorContext(orgID domain.OrgID, keyID domain.APIKeyID, displayName, email, clientRef string) (Context, error) {
	if orgID.IsNil() || keyID.IsNil() {
		return Context{}, dErrors.New(dErrors.CodeInvariantViolation, "vendor actor requires organization and key id")
	}
	displayName = strings.TrimSpace(displayName)
	email = strings.TrimSpace(email)
	if displayName == "" || email == "" {
		return Context{}, dErrors.New(dErrors.CodeMissingActorAttribution, "vendor credential requires X-Actor-Name and X-Actor-Email")
	}
	return Context{
		OrganizationID:  orgID,
		Type:            TypeVendor,
		ActorID:         keyID.String(),
		DisplayName:     displayName,
		Email:           email,
		ClientReference: strings.TrimSpace(clientRef),
	}, nil
}

// APIKey is a stored service or vendor credential. The plaintext secret is
// shown once at creation; only the bcrypt hash is stored.
type APIKey struct {
	ID             domain.APIKeyID
	OrganizationID domain.OrgID
	Kind           Type
	Name           string
	SecretHash     string
	CreatedAt      time.Time
	RevokedAt      *time.Time
}

// IsActive reports whether the key can still authenticate callers.
func (k *APIKey) IsActive() bool {
	return k.RevokedAt == nil
}
