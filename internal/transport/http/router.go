// Package httptransport assembles the public HTTP surface: the proxy, the
// audit read API, discovery, health, and metrics.
package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	audithandler "helios/internal/audit/handler"
	gatewayhandler "helios/internal/gateway/handler"
	"helios/internal/platform/middleware"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries the handlers and checks the router mounts.
type Deps struct {
	Gateway *gatewayhandler.Handler
	Audit   *audithandler.Handler
	// Sessions guards the audit read API; only session-authenticated
	// operators may browse the trail.
	Sessions middleware.SessionValidator
	Logger   *slog.Logger

	// RequestTimeout bounds everything except the proxy path, which manages
	// its own upstream deadline.
	RequestTimeout time.Duration

	HealthChecks map[string]HealthChecker
}

// NewRouter builds the chi router with the standard middleware chain.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(deps.Logger))

	r.Get("/healthz", handleHealth(deps))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	deps.Gateway.Register(r)

	r.Group(func(r chi.Router) {
		if deps.RequestTimeout > 0 {
			r.Use(middleware.Timeout(deps.RequestTimeout))
		}
		r.Use(middleware.RequireSession(deps.Sessions, deps.Logger))
		deps.Audit.Register(r)
	})

	return r
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		status := http.StatusOK
		checks := make(map[string]string, len(deps.HealthChecks))
		for name, checker := range deps.HealthChecks {
			if err := checker.Health(ctx); err != nil {
				checks[name] = "unhealthy"
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = writeHealthBody(w, status == http.StatusOK, checks)
	}
}

func writeHealthBody(w http.ResponseWriter, healthy bool, checks map[string]string) error {
	body := map[string]any{"healthy": healthy}
	if len(checks) > 0 {
		body["checks"] = checks
	}
	return json.NewEncoder(w).Encode(body)
}
