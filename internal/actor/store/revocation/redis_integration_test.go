//go:build integration

package revocation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	revocationstore "helios/internal/actor/store/revocation"
	"helios/pkg/testutil/containers"
)

func TestRedisStore_IsRevoked(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	store := revocationstore.NewRedis(rc.Client)
	ctx := context.Background()

	// The login service writes revocations under trl:jti:*.
	require.NoError(t, rc.Client.Set(ctx, "trl:jti:revoked-session", "1", time.Hour).Err())

	revoked, err := store.IsRevoked(ctx, "revoked-session")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = store.IsRevoked(ctx, "live-session")
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = store.IsRevoked(ctx, "")
	require.NoError(t, err)
	assert.False(t, revoked)
}
