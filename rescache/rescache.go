package rescache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Config tunes one layered cache instance.
type Config struct {
	// MaxCost bounds the in-process tier's total cost (bytes, by
	// convention). Admission and eviction are cost-based, so the tier
	// degrades gracefully under memory pressure instead of growing.
	MaxCost int64 `yaml:"max_cost"`
	// NumCounters sizes the frequency sketch; ~10x expected entries.
	NumCounters int64 `yaml:"num_counters"`
	// DefaultTTL applies when Set is called with ttl <= 0.
	DefaultTTL time.Duration `yaml:"default_ttl"`
	// KeyPrefix namespaces the optional Redis tier.
	KeyPrefix string `yaml:"key_prefix"`
}

// DefaultConfig returns defaults sized for profile snapshots and other
// small request-scoped resources.
func DefaultConfig() Config {
	return Config{
		MaxCost:     32 << 20, // 32 MiB
		NumCounters: 100_000,
		DefaultTTL:  5 * time.Minute,
		KeyPrefix:   "querysift:res:",
	}
}

// Cache is a generic two-tier cache: a cost-bounded in-process tier
// over an optional Redis tier. Values must round-trip through JSON for
// the Redis tier to be usable.
type Cache[T any] struct {
	config Config
	l1     *ristretto.Cache
	rdb    *redis.Client
	logger *zap.Logger
}

// New creates a layered cache. rdb may be nil for a purely in-process
// cache.
func New[T any](config Config, rdb *redis.Client, logger *zap.Logger) (*Cache[T], error) {
	def := DefaultConfig()
	if config.MaxCost <= 0 {
		config.MaxCost = def.MaxCost
	}
	if config.NumCounters <= 0 {
		config.NumCounters = def.NumCounters
	}
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = def.DefaultTTL
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = def.KeyPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	l1, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: config.NumCounters,
		MaxCost:     config.MaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create resource cache: %w", err)
	}

	return &Cache[T]{
		config: config,
		l1:     l1,
		rdb:    rdb,
		logger: logger.With(zap.String("component", "rescache")),
	}, nil
}

// Get returns the cached value for key. The in-process tier is
// consulted first; a Redis hit backfills it.
func (c *Cache[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T

	if v, ok := c.l1.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, true
		}
	}

	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, c.config.KeyPrefix+key).Bytes()
		if err == nil {
			var value T
			if err := json.Unmarshal(data, &value); err == nil {
				c.l1.SetWithTTL(key, value, int64(len(data)), c.config.DefaultTTL)
				return value, true
			}
		} else if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis get failed", zap.Error(err))
		}
	}

	return zero, false
}

// Set stores value under key with the given cost (estimated bytes) and
// ttl; ttl <= 0 uses the default. Admission may reject the entry under
// pressure; that is the tier working as intended.
func (c *Cache[T]) Set(ctx context.Context, key string, value T, cost int64, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}
	if cost <= 0 {
		cost = 1
	}
	c.l1.SetWithTTL(key, value, cost, ttl)

	if c.rdb != nil {
		data, err := json.Marshal(value)
		if err != nil {
			return
		}
		if err := c.rdb.Set(ctx, c.config.KeyPrefix+key, data, ttl).Err(); err != nil {
			c.logger.Warn("redis set failed", zap.Error(err))
		}
	}
}

// Delete removes key from both tiers.
func (c *Cache[T]) Delete(ctx context.Context, key string) {
	c.l1.Del(key)
	if c.rdb != nil {
		if err := c.rdb.Del(ctx, c.config.KeyPrefix+key).Err(); err != nil {
			c.logger.Warn("redis del failed", zap.Error(err))
		}
	}
}

// Wait blocks until pending in-process writes are applied. Test
// helper; production callers never need it.
func (c *Cache[T]) Wait() { c.l1.Wait() }

// Close releases the in-process tier's resources.
func (c *Cache[T]) Close() { c.l1.Close() }
