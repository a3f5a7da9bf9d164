package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rss-digest/config"
)

func TestNew(t *testing.T) {
	t.Run("should build memory backend", func(t *testing.T) {
		c, err := New(config.CacheConfig{Backend: "memory", MaxItems: 10, TTL: time.Minute})
		require.NoError(t, err)
		assert.IsType(t, &MemoryCache{}, c)
	})

	t.Run("should reject unknown backend", func(t *testing.T) {
		_, err := New(config.CacheConfig{Backend: "memcached"})
		assert.Error(t, err)
	})
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(8, time.Minute)

	t.Run("should miss on absent key", func(t *testing.T) {
		_, ok, err := c.Get(ctx, "absent")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("should round trip a value", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "models:1", []byte(`["gpt-4o"]`), 0))

		value, ok, err := c.Get(ctx, "models:1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte(`["gpt-4o"]`), value)
	})

	t.Run("should delete a value", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "gone", []byte("x"), 0))
		require.NoError(t, c.Delete(ctx, "gone"))

		_, ok, err := c.Get(ctx, "gone")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisCacheWithClient(client, time.Minute)

	t.Run("should miss on absent key", func(t *testing.T) {
		_, ok, err := c.Get(ctx, "absent")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("should round trip a value", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "models:2", []byte(`["claude"]`), 0))

		value, ok, err := c.Get(ctx, "models:2")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte(`["claude"]`), value)
	})

	t.Run("should expire entries after TTL", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "ephemeral", []byte("x"), 5*time.Second))

		mr.FastForward(6 * time.Second)

		_, ok, err := c.Get(ctx, "ephemeral")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("should delete a value", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "gone", []byte("x"), 0))
		require.NoError(t, c.Delete(ctx, "gone"))

		_, ok, err := c.Get(ctx, "gone")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
