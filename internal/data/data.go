// Package data provides data access layer implementations.
// It handles database connections, caching and outbound HTTP collaborators.
package data

import (
	"errors"
	"time"

	"PostLane/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewData,
	NewRedisClient,
	NewCacheClient,
	NewMySQLClient,
	NewContentRepo,
	NewExecutionRepo,
	NewAuditLogger,
	NewJobLocker,
	NewNoopNotifier,
	NewPlatformClient,
	NewGeneratorClient,
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict is returned when an optimistic update lost the race.
	ErrVersionConflict = errors.New("version conflict")
)

const defaultCacheTTL = 5 * time.Minute

// Data contains all data layer dependencies.
type Data struct {
	// redisClient is the Redis client for caching and locks
	redisClient *redis.Client
	// cache is the cache interface for repository use
	cache CacheClient
	// cacheTTL bounds how long cached rows may be served
	cacheTTL time.Duration
	// Note: MySQL DB is not stored here, it's injected directly to repositories
}

// NewData creates a new Data instance with all data layer dependencies.
// Redis connection failure does not prevent application startup (graceful degradation).
func NewData(c *conf.Data, logger log.Logger, rdb *redis.Client, cache CacheClient) (*Data, func(), error) {
	helper := log.NewHelper(logger)

	// Check if Redis is available
	if rdb == nil {
		helper.Warn("Redis client is nil, caching and job locks will be unavailable")
	}

	ttl := defaultCacheTTL
	if c != nil && c.Redis != nil && c.Redis.CacheTTL > 0 {
		ttl = c.Redis.CacheTTL
	}

	d := &Data{
		redisClient: rdb,
		cache:       cache,
		cacheTTL:    ttl,
	}

	cleanup := func() {
		helper.Info("closing the data resources")
		// Redis cleanup is handled by NewRedisClient's cleanup function
		// which is called automatically by Wire
	}

	return d, cleanup, nil
}

// GetCache returns the cache client for repository use.
func (d *Data) GetCache() CacheClient {
	return d.cache
}

// GetRedisClient returns the Redis client for advanced operations.
func (d *Data) GetRedisClient() *redis.Client {
	return d.redisClient
}

// CacheTTL returns the configured row cache TTL.
func (d *Data) CacheTTL() time.Duration {
	return d.cacheTTL
}
