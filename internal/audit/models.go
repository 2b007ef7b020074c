package audit

import (
	"time"

	"helios/pkg/domain"
	dErrors "helios/pkg/domain-errors"
)

// Record is one append-only line of the request trail: who did what against
// which upstream, and how it ended. Records never carry tokens, credential
// material, or request bodies.
type Record struct {
	ID              domain.AuditRecordID `json:"id"`
	OrganizationID  domain.OrgID         `json:"organization_id"`
	ActorType       string               `json:"actor_type"`
	ActorID         string               `json:"actor_id"`
	DisplayName     string               `json:"display_name,omitempty"`
	Email           string               `json:"email,omitempty"`
	ClientReference string               `json:"client_reference,omitempty"`
	Method          string               `json:"method"`
	Family          string               `json:"family"`
	Path            string               `json:"path"`
	StatusCode      int                  `json:"status_code"`
	LatencyMS       int64                `json:"latency_ms"`
	RequestID       string               `json:"request_id,omitempty"`
	ClientIP        string               `json:"client_ip,omitempty"`
	UserAgent       string               `json:"user_agent,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
}

// Validate enforces the minimum shape a record needs before persistence.
func (r *Record) Validate() error {
	if r.ActorType == "" || r.ActorID == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "audit record requires actor type and id")
	}
	if r.Method == "" || r.Path == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "audit record requires method and path")
	}
	return nil
}

// Query filters the read side of the trail. Zero values mean "no constraint".
type Query struct {
	OrganizationID domain.OrgID
	From           time.Time
	Until          time.Time
	ActorTypes     []string
	ActorID        string
	Family         string
	Limit          int
}

// DefaultQueryLimit caps unbounded listings from the admin UI.
const DefaultQueryLimit = 100

// MaxQueryLimit is the hard ceiling for a single page.
const MaxQueryLimit = 1000
