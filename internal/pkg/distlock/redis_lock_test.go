package distlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisLockAcquireRelease(t *testing.T) {
	client := newRedisClient(t)
	ctx := context.Background()

	lock := NewRedisLock(client, "campaign-intent:test", time.Minute)
	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second holder for the same key is refused while the lock is held.
	other := NewRedisLock(client, "campaign-intent:test", time.Minute)
	ok, err = other.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, lock.Release(ctx))

	ok, err = other.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockReleaseOnlyOwner(t *testing.T) {
	client := newRedisClient(t)
	ctx := context.Background()

	holder := NewRedisLock(client, "shared", time.Minute)
	ok, err := holder.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// A non-owner release must not free the holder's lock.
	stranger := NewRedisLock(client, "shared", time.Minute)
	require.NoError(t, stranger.Release(ctx))

	ok, err = stranger.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisLockKeysAreIndependent(t *testing.T) {
	client := newRedisClient(t)
	ctx := context.Background()

	a := NewRedisLock(client, "intent:a", time.Minute)
	b := NewRedisLock(client, "intent:b", time.Minute)

	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockExtend(t *testing.T) {
	client := newRedisClient(t)
	ctx := context.Background()

	lock := NewRedisLock(client, "long-send", time.Minute)
	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	assert.NoError(t, lock.Extend(ctx, 2*time.Minute))
}
