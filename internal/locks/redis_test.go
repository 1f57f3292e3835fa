package locks

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestLocker(t *testing.T, ttl time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, ttl, zaptest.NewLogger(t)), mr
}

func TestAcquire_SecondHolderIsRefused(t *testing.T) {
	locker, _ := newTestLocker(t, 30*time.Second)
	ctx := context.Background()

	release, ok, err := locker.Acquire(ctx, "wf-1")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.Acquire(ctx, "wf-1")
	require.NoError(t, err)
	assert.False(t, ok, "concurrent poll must not take the held lock")

	release()

	release2, ok, err := locker.Acquire(ctx, "wf-1")
	require.NoError(t, err)
	assert.True(t, ok, "released lock is re-acquirable")
	release2()
}

func TestAcquire_LocksArePerWorkflow(t *testing.T) {
	locker, _ := newTestLocker(t, 30*time.Second)
	ctx := context.Background()

	release1, ok, err := locker.Acquire(ctx, "wf-1")
	require.NoError(t, err)
	require.True(t, ok)
	defer release1()

	release2, ok, err := locker.Acquire(ctx, "wf-2")
	require.NoError(t, err)
	assert.True(t, ok, "a different workflow has an independent lock")
	release2()
}

// A holder whose lock expired must not release the lock a later poll now
// owns; release is token-guarded.
func TestRelease_DoesNotClobberNewHolder(t *testing.T) {
	locker, mr := newTestLocker(t, time.Second)
	ctx := context.Background()

	staleRelease, ok, err := locker.Acquire(ctx, "wf-1")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	_, ok, err = locker.Acquire(ctx, "wf-1")
	require.NoError(t, err)
	require.True(t, ok, "expired lock is free for the next poll")

	staleRelease()

	_, ok, err = locker.Acquire(ctx, "wf-1")
	require.NoError(t, err)
	assert.False(t, ok, "current holder's lock survived the stale release")
}

func TestAcquire_DefaultsTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	locker := NewRedisLocker(client, 0, zaptest.NewLogger(t))
	assert.Equal(t, 30*time.Second, locker.ttl)
}
