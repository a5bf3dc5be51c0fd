package auth

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/cache"
)

func newRedisTokenStore(t *testing.T) (*TokenStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	log := logrus.New()
	log.SetOutput(io.Discard)
	client := cache.New(mr.Addr(), "", 0, log)
	t.Cleanup(func() { _ = client.Close() })
	return NewTokenStore(client), mr
}

func TestTokenStore_RevokeSession(t *testing.T) {
	store, mr := newRedisTokenStore(t)
	ctx := context.Background()

	revoked, err := store.IsSessionRevoked(ctx, "session-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.RevokeSession(ctx, "session-1", 30*time.Minute))

	revoked, err = store.IsSessionRevoked(ctx, "session-1")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Equal(t, 30*time.Minute, mr.TTL(revokedSessionKeyPrefix+"session-1"))

	revoked, err = store.IsSessionRevoked(ctx, "session-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestTokenStore_RevocationExpiresWithToken(t *testing.T) {
	store, mr := newRedisTokenStore(t)
	ctx := context.Background()

	require.NoError(t, store.RevokeSession(ctx, "session-1", time.Minute))
	mr.FastForward(time.Minute + time.Second)

	revoked, err := store.IsSessionRevoked(ctx, "session-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestTokenStore_ExpiredTokenIsNotStored(t *testing.T) {
	store, mr := newRedisTokenStore(t)

	require.NoError(t, store.RevokeSession(context.Background(), "session-1", 0))
	assert.False(t, mr.Exists(revokedSessionKeyPrefix+"session-1"))
}
