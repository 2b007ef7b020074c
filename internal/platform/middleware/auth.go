package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	jwttoken "helios/internal/jwt_token"
	dErrors "helios/pkg/domain-errors"
	"helios/pkg/platform/httputil"
	"helios/pkg/requestcontext"
)

// SessionValidator validates a session bearer token and returns its claims.
type SessionValidator interface {
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

type contextKeySessionOrgID struct{}
type contextKeySessionActorID struct{}

// GetSessionOrgID returns the authenticated session's organization id, or ""
// when the request did not pass through RequireSession.
func GetSessionOrgID(ctx context.Context) string {
	orgID, _ := ctx.Value(contextKeySessionOrgID{}).(string)
	return orgID
}

// GetSessionActorID returns the authenticated session's actor id.
func GetSessionActorID(ctx context.Context) string {
	actorID, _ := ctx.Value(contextKeySessionActorID{}).(string)
	return actorID
}

// RequireSession rejects requests without a valid session bearer token and
// injects the authenticated identity into the context for handlers.
func RequireSession(validator SessionValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || raw == "" {
				logger.WarnContext(ctx, "unauthorized access, missing session token",
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthenticated, "missing or malformed Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(raw)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access, invalid session token",
					"error", err,
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthenticated, "invalid or expired session token"))
				return
			}

			ctx = context.WithValue(ctx, contextKeySessionOrgID{}, claims.OrganizationID)
			ctx = context.WithValue(ctx, contextKeySessionActorID{}, claims.ActorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
