package commands

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/entitymeta/internal/cache"
	"github.com/conduit-lang/entitymeta/internal/cli/config"
	"github.com/conduit-lang/entitymeta/internal/logging"
	"github.com/conduit-lang/entitymeta/internal/orm/schema"
	"github.com/conduit-lang/entitymeta/internal/orm/source"
)

// env is the adapter chain and logger built from the configuration
type env struct {
	cfg     *config.Config
	logger  *zap.Logger
	adapter schema.Adapter
	files   *source.FileAdapter
	sql     *source.SQLAdapter
	caching *source.CachingAdapter
	closers []func() error
}

// loadEnv reads the configuration and connects the configured source and cache
func loadEnv(ctx context.Context, flags *globalFlags) (*env, error) {
	cfg, err := config.LoadFile(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, logger: logger}
	e.closers = append(e.closers, func() error {
		logger.Sync()
		return nil
	})

	if err := e.openSource(); err != nil {
		e.Close()
		return nil, err
	}
	if err := e.openCache(ctx); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func (e *env) openSource() error {
	switch e.cfg.Source.Kind {
	case config.SourceSQL:
		db, err := sql.Open(e.cfg.Source.Driver, e.cfg.Source.DSN)
		if err != nil {
			return fmt.Errorf("failed to open %s database: %w", e.cfg.Source.Driver, err)
		}
		e.closers = append(e.closers, db.Close)

		adapter, err := source.NewSQLAdapter(db, e.cfg.Source.Driver,
			source.WithTable(e.cfg.Source.Table), source.WithLogger(e.logger))
		if err != nil {
			return err
		}
		e.sql = adapter
		e.adapter = adapter
	default:
		e.files = source.NewFileAdapter(e.cfg.Source.Dir, e.logger)
		e.adapter = e.files
	}
	return nil
}

func (e *env) openCache(ctx context.Context) error {
	cacheCfg := cache.Config{DefaultTTL: e.cfg.Cache.TTL, Prefix: e.cfg.Cache.Prefix}

	var c cache.Cache
	switch e.cfg.Cache.Kind {
	case config.CacheMemory:
		c = cache.NewMemoryCacheWithConfig(cacheCfg)
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     e.cfg.Cache.RedisAddr,
			Password: e.cfg.Cache.RedisPassword,
			DB:       e.cfg.Cache.RedisDB,
			Cache:    cacheCfg,
		})
		if err != nil {
			return err
		}
		c = rc
	default:
		return nil
	}

	e.closers = append(e.closers, c.Close)
	e.caching = source.NewCachingAdapter(e.adapter, c, e.cfg.Cache.TTL, e.logger)
	e.adapter = e.caching
	return nil
}

// newStore creates an empty store using the configured convention and adapter
func (e *env) newStore() (*schema.MetadataStore, error) {
	nc, err := schema.LookupNamingConvention(e.cfg.NamingConvention)
	if err != nil {
		return nil, err
	}
	return schema.NewMetadataStore(
		schema.WithNamingConvention(nc),
		schema.WithAdapter(e.adapter),
		schema.WithLogger(e.logger),
	), nil
}

// fetch loads serviceName into a new store; an empty name uses service_name from the config
func (e *env) fetch(ctx context.Context, serviceName string) (*schema.MetadataStore, string, error) {
	if serviceName == "" {
		serviceName = e.cfg.ServiceName
	}
	if serviceName == "" {
		return nil, "", fmt.Errorf("no service name given and service_name is not configured")
	}

	store, err := e.newStore()
	if err != nil {
		return nil, "", err
	}
	if err := store.FetchMetadata(ctx, serviceName); err != nil {
		return nil, "", err
	}
	return store, schema.NormalizeServiceName(serviceName), nil
}

// invalidate drops a cached document; a no-op without a cache
func (e *env) invalidate(ctx context.Context, serviceName string) {
	if e.caching == nil {
		return
	}
	if err := e.caching.Invalidate(ctx, serviceName); err != nil {
		e.logger.Warn("cache invalidation failed", zap.String("service", serviceName), zap.Error(err))
	}
}

// Close releases connections in reverse order of opening
func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

func serviceArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}
