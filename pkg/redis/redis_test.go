package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRedisTest needs a live server; set REDIS_TEST_ADDR to run.
func setupRedisTest(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	c := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	require.NoError(t, c.Ping(context.Background()).Err())
	t.Cleanup(func() {
		c.FlushDB(context.Background())
		c.Close()
	})
	return c
}

func TestSessionStore_RoundTrip(t *testing.T) {
	c := setupRedisTest(t)
	store := NewSessionStore(c, time.Minute)
	ctx := context.Background()

	_, found, err := store.Get(ctx, "bazcar_cart:s1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "bazcar_cart:s1", []byte(`[]`)))
	val, found, err := store.Get(ctx, "bazcar_cart:s1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte(`[]`), val)

	ttl, err := c.TTL(ctx, "bazcar_cart:s1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, store.Delete(ctx, "bazcar_cart:s1"))
	_, found, err = store.Get(ctx, "bazcar_cart:s1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestResponseCache(t *testing.T) {
	c := setupRedisTest(t)
	cache := NewResponseCache(c)
	ctx := context.Background()

	_, ok := cache.Get(ctx, "bookingapi:/cars/")
	assert.False(t, ok)

	cache.Set(ctx, "bookingapi:/cars/", []byte(`[{"id":1}]`), time.Minute)
	val, ok := cache.Get(ctx, "bookingapi:/cars/")
	assert.True(t, ok)
	assert.Equal(t, `[{"id":1}]`, string(val))
}
