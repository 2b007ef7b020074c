package actor

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	jwttoken "helios/internal/jwt_token"
	"helios/pkg/domain"
	dErrors "helios/pkg/domain-errors"
	"helios/pkg/platform/sentinel"
	"helios/pkg/requestcontext"
	"helios/pkg/secrets"
)

// Credentials is the raw credential material extracted from an inbound
// request. Exactly one of BearerToken or APIKey should be set.
type Credentials struct {
	BearerToken     string
	APIKey          string
	ActorName       string
	ActorEmail      string
	ClientReference string
}

// Resolver turns raw request credentials into a typed caller identity.
// Resolution is a pure function of the credentials plus store lookups; it
// performs no writes.
type Resolver struct {
	tokens     *jwttoken.Service
	revocation TokenRevocationChecker
	keys       APIKeyStore
	logger     *slog.Logger
}

func NewResolver(tokens *jwttoken.Service, revocation TokenRevocationChecker, keys APIKeyStore, logger *slog.Logger) *Resolver {
	return &Resolver{
		tokens:     tokens,
		revocation: revocation,
		keys:       keys,
		logger:     logger,
	}
}

// Resolve maps credentials to a Context.
//
// Session tokens resolve to a human operator. Service keys resolve 1:1 to an
// organization with no human attribution. Vendor keys resolve to an
// organization but additionally require per-request attribution; a missing
// name or email fails with CodeMissingActorAttribution before any upstream
// work begins.
func (r *Resolver) Resolve(ctx context.Context, creds Credentials) (Context, error) {
	switch {
	case creds.BearerToken != "" && creds.APIKey != "":
		return Context{}, dErrors.New(dErrors.CodeUnauthenticated, "provide either a bearer token or an API key, not both")
	case creds.BearerToken != "":
		return r.resolveSession(ctx, creds.BearerToken)
	case creds.APIKey != "":
		return r.resolveKey(ctx, creds)
	default:
		return Context{}, dErrors.New(dErrors.CodeUnauthenticated, "missing credentials")
	}
}

func (r *Resolver) resolveSession(ctx context.Context, token string) (Context, error) {
	claims, err := r.tokens.ValidateToken(token)
	if err != nil {
		return Context{}, err
	}

	if r.revocation != nil {
		revoked, err := r.revocation.IsRevoked(ctx, claims.ID)
		if err != nil {
			r.logger.ErrorContext(ctx, "token revocation check failed",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			return Context{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not verify session token")
		}
		if revoked {
			return Context{}, dErrors.New(dErrors.CodeUnauthenticated, "session token revoked")
		}
	}

	orgID, err := domain.ParseOrgID(claims.OrganizationID)
	if err != nil {
		return Context{}, dErrors.New(dErrors.CodeUnauthenticated, "token carries an invalid organization id")
	}
	return NewSessionContext(orgID, claims.ActorID)
}

func (r *Resolver) resolveKey(ctx context.Context, creds Credentials) (Context, error) {
	keyID, secret, err := SplitAPIKey(creds.APIKey)
	if err != nil {
		return Context{}, err
	}

	key, err := r.keys.FindByID(ctx, keyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Context{}, dErrors.New(dErrors.CodeUnauthenticated, "unknown API key")
		}
		return Context{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not look up API key")
	}
	if !key.IsActive() {
		return Context{}, dErrors.New(dErrors.CodeUnauthenticated, "API key revoked")
	}
	if err := secrets.Verify(secret, key.SecretHash); err != nil {
		return Context{}, dErrors.New(dErrors.CodeUnauthenticated, "invalid API key")
	}

	switch key.Kind {
	case TypeService:
		return NewServiceContext(key.OrganizationID, key.ID)
	case TypeVendor:
		return NewVendorContext(key.OrganizationID, key.ID, creds.ActorName, creds.ActorEmail, creds.ClientReference)
	default:
		return Context{}, dErrors.Newf(dErrors.CodeInternal, "API key has unknown kind %q", key.Kind)
	}
}

// SplitAPIKey parses the wire format "<key-id>.<secret>".
func SplitAPIKey(raw string) (domain.APIKeyID, string, error) {
	idPart, secret, found := strings.Cut(raw, ".")
	if !found || secret == "" {
		return domain.APIKeyID{}, "", dErrors.New(dErrors.CodeUnauthenticated, "malformed API key")
	}
	keyID, err := domain.ParseAPIKeyID(idPart)
	if err != nil {
		return domain.APIKeyID{}, "", dErrors.New(dErrors.CodeUnauthenticated, "malformed API key")
	}
	return keyID, secret, nil
}
