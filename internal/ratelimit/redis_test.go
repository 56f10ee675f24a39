package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStoreFixedWindow(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	var got []bool
	for i := 0; i < 4; i++ {
		ok, err := store.Hit(ctx, "mfa_issue:u1", 3, time.Minute)
		require.NoError(t, err)
		got = append(got, ok)
	}
	assert.Equal(t, []bool{true, true, true, false}, got)

	mr.FastForward(time.Minute)
	ok, err := store.Hit(ctx, "mfa_issue:u1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "fresh window after expiry")
}

func TestRedisStoreCounterAlwaysHasTTL(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.Hit(ctx, "action:u2", 2, 10*time.Second)
		require.NoError(t, err)

		ttl := mr.TTL("rl:action:u2")
		assert.True(t, ttl > 0 && ttl <= 10*time.Second, "hit %d ttl %s", i, ttl)
	}

	count, err := mr.Get("rl:action:u2")
	require.NoError(t, err)
	assert.Equal(t, "5", count)
}

func TestRedisStoreUnavailable(t *testing.T) {
	store, mr := newRedisStore(t)
	mr.Close()

	_, err := store.Hit(context.Background(), "k", 1, time.Second)
	assert.Error(t, err)
}
