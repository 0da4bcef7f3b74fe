package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// errRedisUnavailable is returned when no Redis client was configured.
var errRedisUnavailable = errors.New("redis client is nil")

// JobLocker implements biz.JobLocker with a Redis SET NX lease.
type JobLocker struct {
	rdb    *redis.Client
	logger *log.Helper
}

// NewJobLocker creates a Redis-backed job run-lock.
func NewJobLocker(data *Data, logger log.Logger) *JobLocker {
	return &JobLocker{
		rdb:    data.GetRedisClient(),
		logger: log.NewHelper(logger),
	}
}

// Acquire takes the lease on key for ttl. ok is false when another holder owns it.
func (l *JobLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l.rdb == nil {
		return "", false, errRedisUnavailable
	}

	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}

	l.logger.WithContext(ctx).Debugw("msg", "job lock acquired", "key", key, "ttl", ttl)
	return token, true, nil
}

// Release drops the lease if token still owns it. An expired or stolen lease is left alone.
func (l *JobLocker) Release(ctx context.Context, key, token string) error {
	if l.rdb == nil {
		return errRedisUnavailable
	}

	deleted, err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Int()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	if deleted == 0 {
		l.logger.WithContext(ctx).Warnw("msg", "job lock expired before release", "key", key)
	}
	return nil
}
