// Package handler serves the audit trail read API consumed by the admin UI.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"helios/internal/audit"
	"helios/pkg/domain"
	dErrors "helios/pkg/domain-errors"
	"helios/pkg/platform/httputil"
	"helios/pkg/requestcontext"
)

// Handler wires the audit read endpoint to the recorder.
type Handler struct {
	recorder *audit.Recorder
	logger   *slog.Logger
}

func New(recorder *audit.Recorder, logger *slog.Logger) *Handler {
	return &Handler{recorder: recorder, logger: logger}
}

// Register mounts audit endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/audit/records", h.HandleList)
}

// HandleList handles GET /audit/records with optional filters:
// org, from, until (RFC 3339), actor_type (repeatable), actor_id, family, limit.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q, err := parseQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, err := h.recorder.List(ctx, q)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit listing failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "could not list audit records"))
		return
	}
	if records == nil {
		records = []audit.Record{}
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"records": records})
}

func parseQuery(r *http.Request) (audit.Query, error) {
	var q audit.Query
	params := r.URL.Query()

	if raw := params.Get("org"); raw != "" {
		orgID, err := domain.ParseOrgID(raw)
		if err != nil {
			return q, dErrors.New(dErrors.CodeBadRequest, "org must be a UUID")
		}
		q.OrganizationID = orgID
	}
	if raw := params.Get("from"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return q, dErrors.New(dErrors.CodeBadRequest, "from must be RFC 3339")
		}
		q.From = ts
	}
	if raw := params.Get("until"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return q, dErrors.New(dErrors.CodeBadRequest, "until must be RFC 3339")
		}
		q.Until = ts
	}
	q.ActorTypes = params["actor_type"]
	q.ActorID = params.Get("actor_id")
	q.Family = params.Get("family")

	if raw := params.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return q, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer")
		}
		q.Limit = limit
	}
	return q, nil
}
