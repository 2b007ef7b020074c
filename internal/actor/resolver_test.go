package actor_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helios/internal/actor"
	"helios/internal/actor/store/keys"
	"helios/internal/actor/store/revocation"
	jwttoken "helios/internal/jwt_token"
	"helios/pkg/domain"
	dErrors "helios/pkg/domain-errors"
	"helios/pkg/secrets"
)

const (
	signingKey = "resolver-test-key"
	issuer     = "helios-portal"
	audience   = "helios-gateway"
)

type fixture struct {
	resolver   *actor.Resolver
	keys       *keys.MemoryStore
	revocation *revocation.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	keyStore := keys.NewMemory()
	revStore := revocation.NewMemory()
	tokens := jwttoken.NewService(signingKey, issuer, audience)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{
		resolver:   actor.NewResolver(tokens, revStore, keyStore, logger),
		keys:       keyStore,
		revocation: revStore,
	}
}

func (f *fixture) addKey(t *testing.T, kind actor.Type) (domain.OrgID, string) {
	t.Helper()
	orgID := domain.OrgID(uuid.New())
	keyID := domain.APIKeyID(uuid.New())
	secret, err := secrets.Generate()
	require.NoError(t, err)
	hash, err := secrets.Hash(secret)
	require.NoError(t, err)
	f.keys.Put(&actor.APIKey{
		ID:             keyID,
		OrganizationID: orgID,
		Kind:           kind,
		Name:           "test key",
		SecretHash:     hash,
		CreatedAt:      time.Now(),
	})
	return orgID, keyID.String() + "." + secret
}

func mintSessionToken(t *testing.T, orgID, actorID, jti string) string {
	t.Helper()
	claims := jwttoken.Claims{
		OrganizationID: orgID,
		ActorID:        actorID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    issuer,
			Audience:  []string{audience},
			ID:        jti,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	require.NoError(t, err)
	return signed
}

func TestResolve_MissingOrAmbiguousCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("no credentials", func(t *testing.T) {
		_, err := f.resolver.Resolve(ctx, actor.Credentials{})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthenticated))
	})

	t.Run("both bearer and api key", func(t *testing.T) {
		_, err := f.resolver.Resolve(ctx, actor.Credentials{BearerToken: "x", APIKey: "y"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthenticated))
	})
}

func TestResolve_Session(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orgID := uuid.NewString()
	actorID := uuid.NewString()

	t.Run("valid token resolves to session actor", func(t *testing.T) {
		token := mintSessionToken(t, orgID, actorID, uuid.NewString())
		resolved, err := f.resolver.Resolve(ctx, actor.Credentials{BearerToken: token})
		require.NoError(t, err)
		assert.Equal(t, actor.TypeSession, resolved.Type)
		assert.Equal(t, orgID, resolved.OrganizationID.String())
		assert.Equal(t, actorID, resolved.ActorID)
	})

	t.Run("revoked token fails", func(t *testing.T) {
		jti := uuid.NewString()
		f.revocation.Revoke(jti)
		token := mintSessionToken(t, orgID, actorID, jti)
		_, err := f.resolver.Resolve(ctx, actor.Credentials{BearerToken: token})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthenticated))
	})

	t.Run("garbage token fails", func(t *testing.T) {
		_, err := f.resolver.Resolve(ctx, actor.Credentials{BearerToken: "garbage"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthenticated))
	})
}

func TestResolve_ServiceKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orgID, apiKey := f.addKey(t, actor.TypeService)

	resolved, err := f.resolver.Resolve(ctx, actor.Credentials{APIKey: apiKey})
	require.NoError(t, err)
	assert.Equal(t, actor.TypeService, resolved.Type)
	assert.Equal(t, orgID, resolved.OrganizationID)
	assert.Empty(t, resolved.DisplayName)
	assert.Empty(t, resolved.Email)
}

func TestResolve_VendorKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, apiKey := f.addKey(t, actor.TypeVendor)

	t.Run("with attribution", func(t *testing.T) {
		resolved, err := f.resolver.Resolve(ctx, actor.Credentials{
			APIKey:          apiKey,
			ActorName:       "Jane Doe",
			ActorEmail:      "jane@msp.example",
			ClientReference: "ticket-42",
		})
		require.NoError(t, err)
		assert.Equal(t, actor.TypeVendor, resolved.Type)
		assert.Equal(t, "Jane Doe", resolved.DisplayName)
		assert.Equal(t, "jane@msp.example", resolved.Email)
		assert.Equal(t, "ticket-42", resolved.ClientReference)
	})

	t.Run("missing name", func(t *testing.T) {
		_, err := f.resolver.Resolve(ctx, actor.Credentials{APIKey: apiKey, ActorEmail: "jane@msp.example"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeMissingActorAttribution))
	})

	t.Run("missing email", func(t *testing.T) {
		_, err := f.resolver.Resolve(ctx, actor.Credentials{APIKey: apiKey, ActorName: "Jane Doe"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeMissingActorAttribution))
	})

	t.Run("whitespace-only attribution", func(t *testing.T) {
		_, err := f.resolver.Resolve(ctx, actor.Credentials{APIKey: apiKey, ActorName: " ", ActorEmail: "\t"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeMissingActorAttribution))
	})
}

func TestResolve_BadKeys(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("malformed key", func(t *testing.T) {
		_, err := f.resolver.Resolve(ctx, actor.Credentials{APIKey: "no-dot-here"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthenticated))
	})

	t.Run("unknown key id", func(t *testing.T) {
		_, err := f.resolver.Resolve(ctx, actor.Credentials{APIKey: uuid.NewString() + ".secret"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthenticated))
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, keyWithSecret := f.addKey(t, actor.TypeService)
		id, _, err := actor.SplitAPIKey(keyWithSecret)
		require.NoError(t, err)
		_, err = f.resolver.Resolve(ctx, actor.Credentials{APIKey: id.String() + ".wrong-secret"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthenticated))
	})

	t.Run("revoked key", func(t *testing.T) {
		orgID, keyWithSecret := f.addKey(t, actor.TypeService)
		id, secret, err := actor.SplitAPIKey(keyWithSecret)
		require.NoError(t, err)
		hash, err := secrets.Hash(secret)
		require.NoError(t, err)
		now := time.Now()
		f.keys.Put(&actor.APIKey{
			ID:             id,
			OrganizationID: orgID,
			Kind:           actor.TypeService,
			SecretHash:     hash,
			CreatedAt:      now.Add(-time.Hour),
			RevokedAt:      &now,
		})
		_, err = f.resolver.Resolve(ctx, actor.Credentials{APIKey: keyWithSecret})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthenticated))
	})
}
