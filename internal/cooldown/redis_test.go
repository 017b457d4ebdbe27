package cooldown

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisGuard, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisGuard(client), mr
}

func TestRedisGuard_ReserveOnce(t *testing.T) {
	guard, mr := setupTestRedis(t)
	ctx := context.Background()

	token, ok, err := guard.Reserve(ctx, "0901234567", "p1", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = guard.Reserve(ctx, "0901234567", "p1", 10*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 10*time.Second, mr.TTL("review:cooldown:10:0901234567:p1"))
}

func TestRedisGuard_ScopedPerProduct(t *testing.T) {
	guard, _ := setupTestRedis(t)
	ctx := context.Background()

	_, ok, err := guard.Reserve(ctx, "0901234567", "p1", 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = guard.Reserve(ctx, "0901234567", "p2", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisGuard_ExpiresAfterTTL(t *testing.T) {
	guard, mr := setupTestRedis(t)
	ctx := context.Background()

	_, ok, err := guard.Reserve(ctx, "0901234567", "p1", 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(10 * time.Second)

	_, ok, err = guard.Reserve(ctx, "0901234567", "p1", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisGuard_ReleaseWithOwnToken(t *testing.T) {
	guard, mr := setupTestRedis(t)
	ctx := context.Background()

	token, ok, err := guard.Reserve(ctx, "0901234567", "p1", 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, guard.Release(ctx, "0901234567", "p1", token))
	assert.False(t, mr.Exists("review:cooldown:10:0901234567:p1"))
}

func TestRedisGuard_ReleaseWithStaleTokenKeepsReservation(t *testing.T) {
	guard, mr := setupTestRedis(t)
	ctx := context.Background()

	_, ok, err := guard.Reserve(ctx, "0901234567", "p1", 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, guard.Release(ctx, "0901234567", "p1", "someone-else"))
	assert.True(t, mr.Exists("review:cooldown:10:0901234567:p1"))
}

func TestRedisGuard_BackendDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	guard := NewRedisGuard(client)
	mr.Close()

	_, ok, err := guard.Reserve(context.Background(), "0901234567", "p1", 10*time.Second)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRedisGuard_SeparatorInPartsReservesIndependently(t *testing.T) {
	guard, _ := setupTestRedis(t)
	ctx := context.Background()

	_, ok, err := guard.Reserve(ctx, "a:b", "c", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = guard.Reserve(ctx, "a", "b:c", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
