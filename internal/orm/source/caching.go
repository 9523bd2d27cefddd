package source

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/entitymeta/internal/cache"
	"github.com/conduit-lang/entitymeta/internal/orm/schema"
)

// CachingAdapter serves documents from a cache and falls back to the wrapped
// adapter on a miss. A failing cache is logged and bypassed.
type CachingAdapter struct {
	next   schema.Adapter
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachingAdapter wraps next. A zero ttl uses the cache's default.
func NewCachingAdapter(next schema.Adapter, c cache.Cache, ttl time.Duration, logger *zap.Logger) *CachingAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachingAdapter{next: next, cache: c, ttl: ttl, logger: logger}
}

// FetchMetadata implements schema.Adapter
func (a *CachingAdapter) FetchMetadata(ctx context.Context, store *schema.MetadataStore, ds *schema.DataService) (*schema.Document, error) {
	name := serviceName(ds)
	key := cache.DocumentKey(name)

	data, err := a.cache.Get(ctx, key)
	switch {
	case err == nil:
		doc, decodeErr := schema.DecodeDocument(data)
		if decodeErr == nil {
			a.logger.Debug("metadata cache hit", zap.String("service", name))
			return doc, nil
		}
		a.logger.Warn("discarding undecodable cached metadata", zap.String("service", name), zap.Error(decodeErr))
	case cache.IsCacheMiss(err):
		a.logger.Debug("metadata cache miss", zap.String("service", name))
	default:
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.logger.Warn("metadata cache unavailable", zap.String("service", name), zap.Error(err))
	}

	doc, err := a.next.FetchMetadata(ctx, store, ds)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}

	encoded, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata for %s: %w", name, err)
	}
	if err := a.cache.Set(ctx, key, encoded, a.ttl); err != nil {
		a.logger.Warn("failed to cache metadata", zap.String("service", name), zap.Error(err))
	}
	return doc, nil
}

// Invalidate drops the cached document of serviceName
func (a *CachingAdapter) Invalidate(ctx context.Context, serviceName string) error {
	if err := a.cache.Delete(ctx, cache.DocumentKey(serviceName)); err != nil {
		return fmt.Errorf("failed to invalidate metadata for %s: %w", serviceName, err)
	}
	return nil
}
