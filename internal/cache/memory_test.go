package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetAndGet(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	value := []byte(`{"structuralTypes":[]}`)
	require.NoError(t, c.Set(ctx, "doc", value, time.Minute))

	got, err := c.Get(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, value, got)

	got[0] = 'x'
	again, err := c.Get(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, byte('{'), again[0], "callers get their own copy")
}

func TestMemoryCache_Miss(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()

	_, err := c.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, IsCacheMiss(err))
	assert.Contains(t, err.Error(), "nope")
}

func TestMemoryCache_Expiration(t *testing.T) {
	c := NewMemoryCacheWithConfig(Config{DefaultTTL: time.Minute, Prefix: "t:"})
	defer c.Close()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", []byte("a"), time.Second))
	require.NoError(t, c.Set(ctx, "default", []byte("b"), 0))
	require.NoError(t, c.Set(ctx, "forever", []byte("c"), -1))

	now = now.Add(2 * time.Second)
	_, err := c.Get(ctx, "short")
	assert.True(t, IsCacheMiss(err))
	ok, err := c.Exists(ctx, "default")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(time.Hour)
	ok, _ = c.Exists(ctx, "default")
	assert.False(t, ok)
	ok, _ = c.Exists(ctx, "forever")
	assert.True(t, ok)

	c.removeExpired()
	assert.Equal(t, 1, c.Len())
}

func TestMemoryCache_DeleteAndClear(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))

	require.NoError(t, c.Delete(ctx, "a"))
	ok, _ := c.Exists(ctx, "a")
	assert.False(t, ok)

	require.NoError(t, c.Clear(ctx))
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_CancelledContext(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, c.Set(ctx, "a", nil, 0), context.Canceled)
	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDocumentKey(t *testing.T) {
	assert.Equal(t, DocumentKey("breeze/Northwind"), DocumentKey("breeze/Northwind/"))
	assert.NotEqual(t, DocumentKey("breeze/Northwind"), DocumentKey("breeze/Other"))
	assert.Len(t, DocumentKey("x"), len("metadata:")+32)
}
