package data

import (
	"context"
	"testing"
	"time"

	"PostLane/internal/conf"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisConf(addr string) *conf.Data {
	return &conf.Data{
		Redis: &conf.Redis{
			Addr:         addr,
			ReadTimeout:  200 * time.Millisecond,
			WriteTimeout: 200 * time.Millisecond,
		},
	}
}

func TestNewRedisClient_Success(t *testing.T) {
	mr := miniredis.RunT(t)
	defer mr.Close()

	client, cleanup, err := NewRedisClient(redisConf(mr.Addr()), log.DefaultLogger)
	require.NoError(t, err)
	require.NotNil(t, client)
	defer cleanup()

	assert.NoError(t, client.Ping(context.Background()).Err())
}

func TestNewRedisClient_ConnectionFailure(t *testing.T) {
	// Use invalid address to simulate connection failure
	client, cleanup, err := NewRedisClient(redisConf("localhost:99999"), log.DefaultLogger)
	defer cleanup()

	// Startup continues in degraded mode with a lazily reconnecting client
	assert.NoError(t, err)
	require.NotNil(t, client)

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	assert.Error(t, client.Ping(ctx).Err())
}

func TestNewRedisClient_NilConfig(t *testing.T) {
	client, cleanup, err := NewRedisClient(nil, log.DefaultLogger)
	defer cleanup()

	assert.NoError(t, err)
	assert.Nil(t, client)
}

func TestNewRedisClient_EmptyAddress(t *testing.T) {
	client, cleanup, err := NewRedisClient(redisConf(""), log.DefaultLogger)
	defer cleanup()

	assert.NoError(t, err)
	assert.Nil(t, client)
}

func TestNewRedisClient_PoolConfiguration(t *testing.T) {
	mr := miniredis.RunT(t)
	defer mr.Close()

	c := redisConf(mr.Addr())
	c.Redis.Password = "s3cret"
	c.Redis.DB = 2
	mr.RequireAuth("s3cret")

	client, cleanup, err := NewRedisClient(c, log.DefaultLogger)
	require.NoError(t, err)
	require.NotNil(t, client)
	defer cleanup()

	opts := client.Options()
	assert.Equal(t, 20, opts.PoolSize)
	assert.Equal(t, 2, opts.MinIdleConns)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, "tcp", opts.Network)
	assert.Equal(t, 3*time.Second, opts.DialTimeout)
	assert.Equal(t, 200*time.Millisecond, opts.ReadTimeout, "ReadTimeout should match config")
	assert.Equal(t, 200*time.Millisecond, opts.WriteTimeout, "WriteTimeout should match config")
}

func TestNewRedisClient_CleanupFunction(t *testing.T) {
	mr := miniredis.RunT(t)
	defer mr.Close()

	client, cleanup, err := NewRedisClient(redisConf(mr.Addr()), log.DefaultLogger)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, client.Ping(ctx).Err())

	cleanup()

	// After cleanup, operations should fail
	assert.Error(t, client.Ping(ctx).Err())
}
