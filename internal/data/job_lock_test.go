package data

import (
	"context"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobLocker_AcquireAndRelease(t *testing.T) {
	data, mr := newTestData(t)
	locker := NewJobLocker(data, log.DefaultLogger)
	ctx := context.Background()
	key := JobLockKey("publish-content")

	token, ok, err := locker.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	stored, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, token, stored)
	assert.Equal(t, time.Minute, mr.TTL(key))

	// A second holder is refused while the lease is live
	_, ok, err = locker.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, locker.Release(ctx, key, token))
	assert.False(t, mr.Exists(key))

	_, ok, err = locker.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestJobLocker_ReleaseKeepsForeignLease(t *testing.T) {
	data, mr := newTestData(t)
	locker := NewJobLocker(data, log.DefaultLogger)
	ctx := context.Background()
	key := "postlane:job:generate-content:lock"

	_, ok, err := locker.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, locker.Release(ctx, key, "someone-else"))
	assert.True(t, mr.Exists(key))
}

func TestJobLocker_LeaseExpires(t *testing.T) {
	data, mr := newTestData(t)
	locker := NewJobLocker(data, log.DefaultLogger)
	ctx := context.Background()
	key := "postlane:job:publish-content:lock"

	token, ok, err := locker.Acquire(ctx, key, 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(11 * time.Second)

	_, ok, err = locker.Acquire(ctx, key, 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "expired lease should be reclaimable")

	// The stale token must not drop the new holder's lease
	require.NoError(t, locker.Release(ctx, key, token))
	assert.True(t, mr.Exists(key))
}

func TestJobLocker_NilRedis(t *testing.T) {
	locker := NewJobLocker(&Data{}, log.DefaultLogger)
	ctx := context.Background()

	_, ok, err := locker.Acquire(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, errRedisUnavailable)
	assert.False(t, ok)
	assert.ErrorIs(t, locker.Release(ctx, "k", "t"), errRedisUnavailable)
}

func TestJobLocker_RedisDown(t *testing.T) {
	data, mr := newTestData(t)
	locker := NewJobLocker(data, log.DefaultLogger)
	mr.Close()

	_, ok, err := locker.Acquire(context.Background(), "postlane:job:x:lock", time.Minute)
	assert.Error(t, err)
	assert.False(t, ok)
}
