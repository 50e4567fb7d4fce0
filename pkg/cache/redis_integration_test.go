//go:build integration

package cache_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/customdomains/pkg/cache"
	"github.com/dmitrymomot/customdomains/pkg/redis"
)

type inspection struct {
	Domain string `json:"domain"`
	Days   int    `json:"days"`
}

func TestRedis(t *testing.T) {
	t.Parallel()

	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/0"
	}
	ctx := context.Background()
	client, err := redis.Open(ctx, redis.Config{URL: url, RetryAttempts: 1})
	require.NoError(t, err, "failed to connect to Redis")
	t.Cleanup(func() { _ = client.Close() })

	c := cache.NewRedis[inspection](client, nil, "test-cache", time.Minute)

	_, err = c.Get(ctx, "missing")
	require.ErrorIs(t, err, cache.ErrNotFound)

	require.NoError(t, c.Set(ctx, "shop.example.com", inspection{Domain: "shop.example.com", Days: 12}, 0))
	got, err := c.Get(ctx, "shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, 12, got.Days)

	require.NoError(t, c.Set(ctx, "short", inspection{}, 50*time.Millisecond))
	time.Sleep(100 * time.Millisecond)
	_, err = c.Get(ctx, "short")
	require.ErrorIs(t, err, cache.ErrNotFound)

	require.NoError(t, c.Delete(ctx, "shop.example.com"))
	_, err = c.Get(ctx, "shop.example.com")
	require.ErrorIs(t, err, cache.ErrNotFound)
}
