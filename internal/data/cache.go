// Package data provides data access layer implementations.
package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key namespaces.
const (
	// CacheKeyContent prefixes cached content rows: content:{id}
	CacheKeyContent = "content"
	// CacheKeyJobLock prefixes job run-locks: postlane:job:{name}:lock
	CacheKeyJobLock = "postlane:job"
)

var (
	// ErrCacheNotFound is returned on a miss, including an entry that could not be decoded.
	ErrCacheNotFound = errors.New("cache: key not found")

	errCacheDisabled = errors.New("cache: redis client is nil")
)

// CacheClient is the read-through cache used by the content repository.
// Values are stored as JSON.
type CacheClient interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type redisCache struct {
	client *redis.Client
}

// NewCacheClient wraps rdb. A nil rdb yields a client whose calls all fail,
// which callers treat as a cache outage.
func NewCacheClient(rdb *redis.Client) CacheClient {
	return &redisCache{client: rdb}
}

// Get decodes the entry at key into dest. An undecodable entry is dropped so
// the next read repopulates it, and the call reports a miss.
func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return errCacheDisabled
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return ErrCacheNotFound
	case err != nil:
		return fmt.Errorf("cache: get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		_ = c.client.Del(ctx, key).Err()
		return fmt.Errorf("%w: dropped undecodable entry %s: %v", ErrCacheNotFound, key, err)
	}
	return nil
}

func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return errCacheDisabled
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("cache: set %s: %w", key, err)
	}
	return nil
}

// Delete removes keys; missing keys are not an error.
func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil {
		return errCacheDisabled
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache: delete %s: %w", strings.Join(keys, ","), err)
	}
	return nil
}

// BuildCacheKey joins prefix and parts with ':'.
func BuildCacheKey(prefix string, parts ...string) string {
	return strings.Join(append([]string{prefix}, parts...), ":")
}

// ContentCacheKey is the cache key of one content item.
func ContentCacheKey(id int64) string {
	return BuildCacheKey(CacheKeyContent, strconv.FormatInt(id, 10))
}

// JobLockKey is the run-lock key shared by all instances for a job.
func JobLockKey(jobName string) string {
	return BuildCacheKey(CacheKeyJobLock, jobName, "lock")
}
