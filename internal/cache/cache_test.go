package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	type payload struct {
		Name  string  `json:"name"`
		Score float64 `json:"score"`
	}

	require.NoError(t, c.Set(ctx, "k", payload{Name: "ai", Score: 42.5}, time.Minute))

	var got payload
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, payload{Name: "ai", Score: 42.5}, got)

	ok, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Delete(ctx, "k"))
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrNotFound)
}

func TestMemoryCacheTTL(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", "v", 10*time.Millisecond))
	require.NoError(t, c.Set(ctx, "forever", "v", 0))

	time.Sleep(25 * time.Millisecond)

	var out string
	assert.ErrorIs(t, c.Get(ctx, "short", &out), ErrNotFound)
	assert.NoError(t, c.Get(ctx, "forever", &out))

	n, err := c.DBSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryCacheKeysGlob(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	for _, key := range []string{"heatlink:sources", "heatlink:search:q=ai", "heatsight:heatscore:keywords"} {
		require.NoError(t, c.Set(ctx, key, 1, 0))
	}

	keys, err := c.Keys(ctx, "heatlink:*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"heatlink:sources", "heatlink:search:q=ai"}, keys)

	keys, err = c.Keys(ctx, "heatsight:heatscore:keyword?")
	require.NoError(t, err)
	assert.Equal(t, []string{"heatsight:heatscore:keywords"}, keys)
}

func TestMemoryCacheBackend(t *testing.T) {
	c := NewMemoryCache()
	assert.Equal(t, "memory", c.Backend())
	assert.NoError(t, c.Ping(context.Background()))
}

func TestRedisCacheGetSet(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCache(client)
	ctx := context.Background()

	mock.ExpectSet("k", []byte(`{"a":1}`), time.Minute).SetVal("OK")
	require.NoError(t, c.Set(ctx, "k", map[string]int{"a": 1}, time.Minute))

	mock.ExpectGet("k").SetVal(`{"a":1}`)
	var got map[string]int
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, map[string]int{"a": 1}, got)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCache(client)

	mock.ExpectGet("missing").RedisNil()

	var out string
	assert.ErrorIs(t, c.Get(context.Background(), "missing", &out), ErrNotFound)
}

func TestRedisCacheBackend(t *testing.T) {
	client, _ := redismock.NewClientMock()
	assert.Equal(t, "redis", NewRedisCache(client).Backend())
}

func TestConnectFallsBackToMemory(t *testing.T) {
	c := Connect(context.Background(), "redis://127.0.0.1:1")
	assert.Equal(t, "memory", c.Backend())

	c = Connect(context.Background(), "not a url")
	assert.Equal(t, "memory", c.Backend())
}
