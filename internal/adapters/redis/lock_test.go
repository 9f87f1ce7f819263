package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisstore "github.com/bazaarsim/vyapari/internal/adapters/redis"
)

func newTestLocker(t *testing.T) (*redisstore.Locker, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	return redisstore.NewLocker(client, "vyapari:session:"), mr
}

func TestLocker_AcquireAndRelease(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "sess-1", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("vyapari:session:lock:sess-1"))

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("vyapari:session:lock:sess-1"))
}

func TestLocker_BlocksSecondHolder(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "sess-2", 5*time.Second)
	require.NoError(t, err)

	// A second acquisition must wait; give it a short deadline and
	// expect failure.
	waitCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(waitCtx, "sess-2", 5*time.Second)
	assert.ErrorIs(t, err, redisstore.ErrLockAcquire)

	// After release it succeeds immediately.
	require.NoError(t, unlock(ctx))
	unlock2, err := locker.Lock(ctx, "sess-2", 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestLocker_UnlockIsHolderSafe(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "sess-3", 1*time.Second)
	require.NoError(t, err)

	// Lock expires and someone else takes it.
	mr.FastForward(2 * time.Second)
	unlockOther, err := locker.Lock(ctx, "sess-3", 5*time.Second)
	require.NoError(t, err)

	// The stale holder's unlock must not release the new holder's lock.
	require.NoError(t, unlock(ctx))
	assert.True(t, mr.Exists("vyapari:session:lock:sess-3"))

	require.NoError(t, unlockOther(ctx))
	assert.False(t, mr.Exists("vyapari:session:lock:sess-3"))
}

func TestLocker_IndependentKeys(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()

	unlockA, err := locker.Lock(ctx, "sess-a", 5*time.Second)
	require.NoError(t, err)
	unlockB, err := locker.Lock(ctx, "sess-b", 5*time.Second)
	require.NoError(t, err)

	require.NoError(t, unlockA(ctx))
	require.NoError(t, unlockB(ctx))
}
