// Package app wires configuration into a ready-to-run image service.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/stanleyluong/stanslist/config"
	"github.com/stanleyluong/stanslist/internal/domain"
	"github.com/stanleyluong/stanslist/internal/infrastructure/cache"
	"github.com/stanleyluong/stanslist/internal/infrastructure/catalog"
	"github.com/stanleyluong/stanslist/internal/infrastructure/probe"
	"github.com/stanleyluong/stanslist/internal/infrastructure/store/memory"
	"github.com/stanleyluong/stanslist/internal/infrastructure/store/postgres"
	"github.com/stanleyluong/stanslist/internal/infrastructure/store/redis"
	"github.com/stanleyluong/stanslist/internal/metrics"
	"github.com/stanleyluong/stanslist/internal/usecase"
)

// App holds the constructed services and the resources they own
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Store   domain.RecordStore
	Catalog *domain.Catalog
	Images  *usecase.ImageService

	closers []func()
}

// New builds every dependency described by cfg. Store connectivity is checked
// before returning; a catalog that fails validation aborts startup.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	cat, err := catalog.Load(cfg.Matching.CatalogPath, cfg.Matching.Strategy)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	a.Catalog = cat
	logger.Info("catalog loaded",
		zap.String("strategy", cfg.Matching.Strategy),
		zap.String("path", cfg.Matching.CatalogPath),
		zap.Int("images", len(cat.Images)),
		zap.Int("repair_pool", len(cat.RepairPool)),
	)

	verdicts, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	prober := probe.NewClient(probe.Config{
		Timeout:       cfg.Probe.Timeout,
		RatePerSecond: cfg.Probe.RatePerSecond,
		Burst:         cfg.Probe.Burst,
		UserAgent:     cfg.Probe.UserAgent,
	}, logger)

	validator := usecase.NewValidator(prober, verdicts, usecase.ValidatorConfig{
		CacheTTL: cfg.Probe.CacheTTL,
	}, logger)

	matcher := usecase.NewMatcher(usecase.MatchConfig{
		Strategy:           cfg.Matching.Strategy,
		EnableDebugLogging: cfg.Matching.Debug,
	}, logger)
	allocator := usecase.NewAllocator(cfg.Matching.Discipline, matcher, logger)

	a.Images = usecase.NewImageService(a.Store, cat, allocator, validator, usecase.ImageServiceConfig{
		Collection:    cfg.Store.Collection,
		BatchSize:     cfg.Store.MaxBatchSize,
		VerifyCatalog: cfg.Matching.VerifyCatalog,
	}, logger)

	metrics.Register()

	logger.Info("image service ready",
		zap.String("store", cfg.Store.Driver),
		zap.String("collection", cfg.Store.Collection),
		zap.String("discipline", cfg.Matching.Discipline),
		zap.Bool("verify_catalog", cfg.Matching.VerifyCatalog),
	)
	return a, nil
}

// openStore connects the configured record store and returns the probe verdict
// cache that belongs with it.
func (a *App) openStore(ctx context.Context) (domain.CacheRepository, error) {
	cfg := a.Config.Store

	switch cfg.Driver {
	case "postgres":
		s, err := postgres.NewStore(ctx, postgres.Config{
			DSN:      cfg.DSN,
			MaxConns: cfg.MaxConns,
			Table:    cfg.Table,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		a.closers = append(a.closers, s.Close)
		if err := s.WaitForReady(ctx, connectTimeout(cfg)); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		if err := s.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		a.Store = s
		return a.memoryCache(), nil

	case "redis":
		s, err := redis.NewStore(redis.Config{
			Addrs:     cfg.RedisAddrs,
			Username:  cfg.RedisUsername,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.KeyPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		a.closers = append(a.closers, s.Close)
		if err := s.WaitForReady(ctx, connectTimeout(cfg)); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		a.Store = s
		return cache.NewRedisCache(s.Client(), cfg.KeyPrefix+"cache:"), nil

	case "memory":
		s := memory.New()
		if cfg.SeedFile != "" {
			if err := s.LoadSnapshotFile(cfg.SeedFile); err != nil {
				return nil, fmt.Errorf("seed memory store: %w", err)
			}
			a.Logger.Info("memory store seeded",
				zap.String("file", cfg.SeedFile),
				zap.Int("records", s.Len(cfg.Collection)),
			)
		}
		a.Store = s
		return a.memoryCache(), nil
	}

	return nil, errors.New("unknown store driver: " + cfg.Driver)
}

func (a *App) memoryCache() domain.CacheRepository {
	c := cache.NewMemoryCache(time.Minute)
	a.closers = append(a.closers, c.Close)
	return c
}

func connectTimeout(cfg config.StoreConfig) time.Duration {
	if cfg.ConnectTimeout > 0 {
		return cfg.ConnectTimeout
	}
	return 30 * time.Second
}

// Close releases store connections and background workers in reverse order
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
