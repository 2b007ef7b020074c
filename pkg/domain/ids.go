package domain

import (
	"github.com/google/uuid"

	dErrors "helios/pkg/domain-errors"
)

// Typed UUID identifiers. Wrapping uuid.UUID in distinct types keeps an
// organization ID from ever being passed where an API key ID is expected.
type (
	OrgID         uuid.UUID
	APIKeyID      uuid.UUID
	AuditRecordID uuid.UUID
)

// ParseOrgID validates and returns an OrgID.
// IDs must be valid, non-empty, non-nil UUIDs.
func ParseOrgID(s string) (OrgID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return OrgID{}, err
	}
	return OrgID(u), nil
}

// ParseAPIKeyID validates and returns an APIKeyID.
func ParseAPIKeyID(s string) (APIKeyID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return APIKeyID{}, err
	}
	return APIKeyID(u), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return u, nil
}

func (id OrgID) String() string { return uuid.UUID(id).String() }

func (id OrgID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id APIKeyID) String() string { return uuid.UUID(id).String() }

func (id APIKeyID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id AuditRecordID) String() string { return uuid.UUID(id).String() }

func (id AuditRecordID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// NewAuditRecordID mints a fresh audit record identifier.
func NewAuditRecordID() AuditRecordID {
	return AuditRecordID(uuid.New())
}
