package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisCache(t *testing.T) *RedisCache {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisCache(client, "test:")
}

func TestCaches_SetGetDeleteExists(t *testing.T) {
	caches := map[string]Cache{
		"local": NewLocalCache(time.Minute, time.Minute),
		"redis": newRedisCache(t),
	}

	for name, c := range caches {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, c.Set(ctx, "key", "value", time.Minute))

			val, found := c.Get(ctx, "key")
			require.True(t, found)
			assert.Equal(t, "value", val)

			exists, err := c.Exists(ctx, "key")
			require.NoError(t, err)
			assert.True(t, exists)

			require.NoError(t, c.Delete(ctx, "key"))

			_, found = c.Get(ctx, "key")
			assert.False(t, found)

			exists, err = c.Exists(ctx, "key")
			require.NoError(t, err)
			assert.False(t, exists)
		})
	}
}

func TestLocalCache_TTLExpiry(t *testing.T) {
	c := NewLocalCache(time.Minute, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", "lived", 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, found := c.Get(ctx, "short")
	assert.False(t, found)
}

func TestRedisCache_JSONRoundTrip(t *testing.T) {
	c := newRedisCache(t)
	ctx := context.Background()

	payload := map[string]interface{}{"job_id": "j-1", "count": float64(3)}
	require.NoError(t, c.Set(ctx, "obj", payload, time.Minute))

	val, found := c.Get(ctx, "obj")
	require.True(t, found)
	assert.Equal(t, payload, val)
}

func TestRedisCache_KeyPrefixIsolation(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	a := NewRedisCache(client, "a:")
	b := NewRedisCache(client, "b:")
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, "key", "from-a", time.Minute))

	_, found := b.Get(ctx, "key")
	assert.False(t, found, "prefixes must isolate namespaces")
}
