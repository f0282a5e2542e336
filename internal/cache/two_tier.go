package cache

import (
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/instabrain/core/internal/domain"
)

// TwoTier implements domain.Cache: reads check the process-local tier
// first, falling back to Redis and populating the local tier on a hit so
// repeated reads within the local TTL window never leave the process.
// Writes and invalidations go to both tiers.
type TwoTier struct {
	local *Local
	redis *redis.Client
	ttl   time.Duration
}

// NewTwoTier constructs a TwoTier cache. localTTL bounds how long a value
// may be served from the process-local tier before re-checking Redis.
func NewTwoTier(rdb *redis.Client, localMaxSize int, localTTL time.Duration) *TwoTier {
	return &TwoTier{local: NewLocal(localMaxSize), redis: rdb, ttl: localTTL}
}

func (c *TwoTier) Get(ctx domain.Context, key string) (string, bool) {
	if v, ok := c.local.Get(key); ok {
		return v, true
	}
	v, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("cache redis get failed", slog.String("key", key), slog.Any("error", err))
		}
		return "", false
	}
	c.local.Set(key, v, c.ttl)
	return v, true
}

func (c *TwoTier) Set(ctx domain.Context, key, value string, ttl time.Duration) {
	localTTL := ttl
	if c.ttl < localTTL {
		localTTL = c.ttl
	}
	c.local.Set(key, value, localTTL)
	if err := c.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		slog.Warn("cache redis set failed", slog.String("key", key), slog.Any("error", err))
	}
}

func (c *TwoTier) Invalidate(ctx domain.Context, key string) {
	c.local.Delete(key)
	if err := c.redis.Del(ctx, key).Err(); err != nil {
		slog.Warn("cache redis invalidate failed", slog.String("key", key), slog.Any("error", err))
	}
}

var _ domain.Cache = (*TwoTier)(nil)
