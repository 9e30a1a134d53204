package session

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSenderKey(t *testing.T) {
	tests := map[string]string{
		"whatsapp:+1 (555) 010-0000": "+15550100000",
		"+919876543210":              "+919876543210",
		" whatsapp:919876543210 ":    "+919876543210",
		"Local-User":                 "local-user",
		"":                           "",
	}
	for in, want := range tests {
		assert.Equal(t, want, SenderKey(in), "input %q", in)
	}
}

func TestRedisStoreLifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, time.Hour)
	ctx := context.Background()

	ok, err := store.IsVerified(ctx, "whatsapp:+15550100000")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.MarkVerified(ctx, "whatsapp:+15550100000"))
	ok, err = store.IsVerified(ctx, "+1 555 010 0000")
	require.NoError(t, err)
	assert.True(t, ok, "normalized sender keys should match")
	assert.Equal(t, time.Hour, mr.TTL("verified:+15550100000"))

	require.NoError(t, store.Revoke(ctx, "whatsapp:+15550100000"))
	ok, err = store.IsVerified(ctx, "whatsapp:+15550100000")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, 0)
	ctx := context.Background()

	require.NoError(t, store.MarkVerified(ctx, "whatsapp:+15550100000"))
	mr.FastForward(DefaultTTL - time.Minute)
	ok, err := store.IsVerified(ctx, "whatsapp:+15550100000")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = store.IsVerified(ctx, "whatsapp:+15550100000")
	require.NoError(t, err)
	assert.False(t, ok, "verification must lapse after 24 hours")
}

func TestRedisStoreSurfacesErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, time.Hour)
	mr.Close()

	_, err := store.IsVerified(context.Background(), "whatsapp:+15550100000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session: failed to load verification")
}

func TestNewRedisStorePanicsWithoutClient(t *testing.T) {
	assert.Panics(t, func() { NewRedisStore(nil, time.Hour) })
}

func TestMemoryStoreExpires(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	store := NewMemoryStore(24 * time.Hour).WithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, store.MarkVerified(ctx, "whatsapp:+15550100000"))
	ok, _ := store.IsVerified(ctx, "whatsapp:+15550100000")
	assert.True(t, ok)

	now = now.Add(23 * time.Hour)
	ok, _ = store.IsVerified(ctx, "whatsapp:+15550100000")
	assert.True(t, ok)

	now = now.Add(time.Hour)
	ok, _ = store.IsVerified(ctx, "whatsapp:+15550100000")
	assert.False(t, ok)
}

func TestMemoryStoreRevoke(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()
	require.NoError(t, store.MarkVerified(ctx, "+15550100000"))
	require.NoError(t, store.Revoke(ctx, "whatsapp:+15550100000"))
	ok, err := store.IsVerified(ctx, "+15550100000")
	require.NoError(t, err)
	assert.False(t, ok)
}
