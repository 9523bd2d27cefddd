package source

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/entitymeta/internal/cache"
	"github.com/conduit-lang/entitymeta/internal/orm/schema"
)

func TestCachingAdapter_SecondFetchServedFromCache(t *testing.T) {
	static := NewStaticAdapter()
	require.NoError(t, static.AddJSON("northwind", []byte(regionJSON)))
	mem := cache.NewMemoryCache()
	defer mem.Close()
	adapter := NewCachingAdapter(static, mem, time.Minute, nil)

	_, err := fetchInto(t, adapter, "northwind")
	require.NoError(t, err)
	store, err := fetchInto(t, adapter, "northwind/")
	require.NoError(t, err)

	assert.Equal(t, 1, static.Calls())
	_, err = store.GetEntityType("Region:#Northwind")
	assert.NoError(t, err)

	require.NoError(t, adapter.Invalidate(context.Background(), "northwind"))
	_, err = fetchInto(t, adapter, "northwind")
	require.NoError(t, err)
	assert.Equal(t, 2, static.Calls())
}

func TestCachingAdapter_DiscardsUndecodableEntry(t *testing.T) {
	static := NewStaticAdapter()
	require.NoError(t, static.AddJSON("northwind", []byte(regionJSON)))
	mem := cache.NewMemoryCache()
	defer mem.Close()
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx, cache.DocumentKey("northwind"), []byte("{garbage"), 0))

	adapter := NewCachingAdapter(static, mem, 0, nil)
	_, err := fetchInto(t, adapter, "northwind")
	require.NoError(t, err)
	assert.Equal(t, 1, static.Calls())

	data, err := mem.Get(ctx, cache.DocumentKey("northwind"))
	require.NoError(t, err)
	_, err = schema.DecodeDocument(data)
	assert.NoError(t, err, "the fresh document replaces the bad entry")
}

func TestCachingAdapter_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := cache.NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), cache.DefaultConfig())
	defer rc.Close()

	static := NewStaticAdapter()
	require.NoError(t, static.AddJSON("northwind", []byte(regionJSON)))
	adapter := NewCachingAdapter(static, rc, 30*time.Second, nil)

	_, err := fetchInto(t, adapter, "northwind")
	require.NoError(t, err)
	key := "entitymeta:" + cache.DocumentKey("northwind")
	assert.True(t, mr.Exists(key))
	assert.Equal(t, 30*time.Second, mr.TTL(key))

	mr.SetError("LOADING Redis is loading the dataset in memory")
	_, err = fetchInto(t, adapter, "northwind")
	require.NoError(t, err, "an unavailable cache falls through to the source")
	assert.Equal(t, 2, static.Calls())
}

func TestCachingAdapter_SourceErrorsPropagate(t *testing.T) {
	mem := cache.NewMemoryCache()
	defer mem.Close()
	adapter := NewCachingAdapter(NewStaticAdapter(), mem, 0, nil)

	_, err := fetchInto(t, adapter, "missing")
	assert.True(t, IsDocumentNotFound(err))
	assert.Equal(t, 0, mem.Len())
}
