package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestCacheVersionInitialisesToOne(t *testing.T) {
	cache := newTestCache(t)

	ver, err := cache.Version(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(1), ver)
}

func TestCacheBumpChangesKeys(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	before, err := cache.BuildKey(ctx, "stock", "overview")
	require.NoError(t, err)

	require.NoError(t, cache.Bump(ctx))

	after, err := cache.BuildKey(ctx, "stock", "overview")
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestCacheFetchJSONServesCachedValue(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	key, err := cache.BuildKey(ctx, "stock", "overview")
	require.NoError(t, err)

	calls := 0
	loader := func(context.Context) (interface{}, error) {
		calls++
		return map[string]int{"boxes": 42}, nil
	}

	var first map[string]int
	require.NoError(t, cache.FetchJSON(ctx, key, &first, loader))
	var second map[string]int
	require.NoError(t, cache.FetchJSON(ctx, key, &second, loader))

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.Equal(t, 42, second["boxes"])
}

func TestCacheNilClientFallsThroughToLoader(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "stock", "overview")
	require.NoError(t, err)
	assert.Equal(t, "stock:overview", key)

	var out map[string]int
	err = cache.FetchJSON(ctx, key, &out, func(context.Context) (interface{}, error) {
		return map[string]int{"boxes": 7}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, out["boxes"])
}
