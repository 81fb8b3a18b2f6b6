package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/alexeiaccio/notion-forum/internal/cache"
	"github.com/alexeiaccio/notion-forum/internal/config"
	"github.com/alexeiaccio/notion-forum/internal/gate"
	"github.com/alexeiaccio/notion-forum/internal/notion"
	"github.com/alexeiaccio/notion-forum/internal/search"
	"github.com/alexeiaccio/notion-forum/internal/store"
)

// CacheBackend is a cache store that can be health-checked and closed.
type CacheBackend interface {
	cache.Store
	Ping(ctx context.Context) error
	Close() error
}

// OpenCacheBackend connects the backend named by cfg.CacheBackend. It
// returns nil for "none".
func OpenCacheBackend(ctx context.Context, cfg config.Config, logger zerolog.Logger) (CacheBackend, error) {
	switch cfg.CacheBackend {
	case config.CacheNone:
		return nil, nil
	case config.CacheMemory:
		return cache.NewMemoryStore(), nil
	case config.CacheDisk:
		disk, err := cache.NewDiskStore(cfg.CacheDir)
		if err != nil {
			return nil, err
		}
		return disk, nil
	case config.CacheRedis:
		redis, err := store.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return redis, nil
	case config.CachePostgres:
		db, err := store.Open(ctx, cfg.DatabaseURL, store.DefaultPool)
		if err != nil {
			return nil, err
		}
		applied, err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		if len(applied) > 0 {
			logger.Info().Strs("versions", applied).Msg("migrations applied")
		}
		return store.NewPostgresStore(db), nil
	case config.CacheS3:
		objects, err := store.NewObjectStore(ctx, store.ObjectStoreConfig{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			return nil, err
		}
		return objects, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}

// Build wires a Service from configuration. The cleanup func releases the
// cache backend and the search client and is never nil.
func Build(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Service, func(), error) {
	backend, err := OpenCacheBackend(ctx, cfg, logger)
	if err != nil {
		return nil, func() {}, fmt.Errorf("open %s cache: %w", cfg.CacheBackend, err)
	}

	var meili *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meili = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
	}
	searchService := search.NewService(meili, logger)

	deps := Deps{
		Upstream: notion.NewClient(notion.Options{
			BaseURL: cfg.NotionBaseURL,
			Token:   cfg.NotionKey,
			Version: cfg.NotionVersion,
			Timeout: cfg.NotionTimeout,
		}),
		Gate: gate.New(gate.Config{
			Limit:         cfg.RateLimit,
			Interval:      cfg.RateInterval,
			MaxConcurrent: cfg.MaxConcurrent,
		}, logger),
		Search: searchService,
		Databases: Databases{
			Pages: cfg.PageDBID,
			Users: cfg.UserDBID,
			Roles: cfg.RoleDBID,
		},
		TokenSecret: []byte(cfg.TokenSecret),
		Logger:      logger,
	}

	cleanup := func() { searchService.Close() }
	if backend != nil {
		deps.Cache = cache.New(backend, logger)
		deps.Ping = backend.Ping
		cleanup = func() {
			searchService.Close()
			if err := backend.Close(); err != nil {
				logger.Warn().Err(err).Msg("close cache backend")
			}
		}
	} else {
		deps.Cache = cache.New(nil, logger)
	}

	logger.Info().
		Str("cache", cfg.CacheBackend).
		Bool("search", meili != nil).
		Int("rate_limit", cfg.RateLimit).
		Dur("rate_interval", cfg.RateInterval).
		Msg("service configured")
	return NewService(deps), cleanup, nil
}
