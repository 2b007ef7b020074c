package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"helios/internal/audit"
	"helios/pkg/domain"
)

// Store persists audit records in the audit_records table.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, rec audit.Record) error {
	query := `
		INSERT INTO audit_records (
			id, organization_id, actor_type, actor_id, display_name, email,
			client_ref, http_method, upstream_family, upstream_path,
			status_code, latency_ms, request_id, client_ip, user_agent, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO NOTHING
	`

	var orgID *uuid.UUID
	if !rec.OrganizationID.IsNil() {
		oid := uuid.UUID(rec.OrganizationID)
		orgID = &oid
	}

	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(rec.ID),
		orgID,
		rec.ActorType,
		rec.ActorID,
		nullable(rec.DisplayName),
		nullable(rec.Email),
		rec.ClientReference,
		rec.Method,
		rec.Family,
		rec.Path,
		rec.StatusCode,
		rec.LatencyMS,
		rec.RequestID,
		rec.ClientIP,
		rec.UserAgent,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, q audit.Query) ([]audit.Record, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !q.OrganizationID.IsNil() {
		conds = append(conds, "organization_id = "+arg(uuid.UUID(q.OrganizationID)))
	}
	if !q.From.IsZero() {
		conds = append(conds, "created_at >= "+arg(q.From))
	}
	if !q.Until.IsZero() {
		conds = append(conds, "created_at < "+arg(q.Until))
	}
	if len(q.ActorTypes) > 0 {
		conds = append(conds, "actor_type = ANY("+arg(pq.Array(q.ActorTypes))+")")
	}
	if q.ActorID != "" {
		conds = append(conds, "actor_id = "+arg(q.ActorID))
	}
	if q.Family != "" {
		conds = append(conds, "upstream_family = "+arg(q.Family))
	}

	query := `
		SELECT id, organization_id, actor_type, actor_id, display_name, email,
			   client_ref, http_method, upstream_family, upstream_path,
			   status_code, latency_ms, request_id, client_ip, user_agent, created_at
		FROM audit_records
	`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT " + arg(q.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var records []audit.Record
	for rows.Next() {
		var (
			rec         audit.Record
			recID       uuid.UUID
			orgID       *uuid.UUID
			displayName sql.NullString
			email       sql.NullString
		)
		err := rows.Scan(
			&recID,
			&orgID,
			&rec.ActorType,
			&rec.ActorID,
			&displayName,
			&email,
			&rec.ClientReference,
			&rec.Method,
			&rec.Family,
			&rec.Path,
			&rec.StatusCode,
			&rec.LatencyMS,
			&rec.RequestID,
			&rec.ClientIP,
			&rec.UserAgent,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		rec.ID = domain.AuditRecordID(recID)
		if orgID != nil {
			rec.OrganizationID = domain.OrgID(*orgID)
		}
		rec.DisplayName = displayName.String
		rec.Email = email.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return records, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
