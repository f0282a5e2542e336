package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTwoTier(t *testing.T) (*TwoTier, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewTwoTier(rdb, 64, time.Minute)
	return c, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

func TestTwoTier_SetThenGet_HitsLocalTier(t *testing.T) {
	c, cleanup := newTestTwoTier(t)
	defer cleanup()
	ctx := context.Background()

	c.Set(ctx, "k1", "v1", time.Minute)
	v, ok := c.Get(ctx, "k1")
	assert.True(t, ok)
	assert.Equal(t, "v1", v)
}

func TestTwoTier_GetFallsBackToRedis(t *testing.T) {
	c, cleanup := newTestTwoTier(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, c.redis.Set(ctx, "k1", "v1", time.Minute).Err())
	v, ok := c.Get(ctx, "k1")
	assert.True(t, ok)
	assert.Equal(t, "v1", v)
}

func TestTwoTier_GetMiss(t *testing.T) {
	c, cleanup := newTestTwoTier(t)
	defer cleanup()
	_, ok := c.Get(context.Background(), "missing")
	assert.False(t, ok)
}

func TestTwoTier_Invalidate_ClearsBothTiers(t *testing.T) {
	c, cleanup := newTestTwoTier(t)
	defer cleanup()
	ctx := context.Background()

	c.Set(ctx, "k1", "v1", time.Minute)
	c.Invalidate(ctx, "k1")
	_, ok := c.Get(ctx, "k1")
	assert.False(t, ok)
}
