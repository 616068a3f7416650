package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"autobill/backend/internal/cache"
	"autobill/backend/internal/config"
	"autobill/backend/internal/logger"
	"autobill/backend/internal/store"
	"autobill/backend/internal/store/memory"
	pgstore "autobill/backend/internal/store/postgres"
	"autobill/backend/internal/store/sqlite"
)

// loadConfig reads the environment and prepares the process logger.
func loadConfig() (config.Config, *slog.Logger, error) {
	cfg := config.Load()
	log := logger.Setup(cfg.AppEnv).With("component", "server")
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, log, nil
}

// newCatalog returns a catalog that connects on first use.
func newCatalog(cfg config.Config) *store.Lazy {
	return store.NewLazy(func(ctx context.Context) (store.Catalog, error) {
		switch cfg.CatalogDriver {
		case config.DriverMemory:
			return memory.NewSeeded(), nil
		case config.DriverPostgres:
			return pgstore.New(ctx, cfg.DatabaseURL)
		default:
			return sqlite.New(ctx, cfg.SQLitePath)
		}
	})
}

// newSuggestionCache connects to Redis when configured. An unreachable Redis
// degrades to the noop cache; the returned closer is never nil.
func newSuggestionCache(ctx context.Context, cfg config.Config, log *slog.Logger) (cache.SuggestionCache, func() error) {
	if cfg.RedisAddr == "" {
		log.Info("suggestion cache: noop")
		return cache.NoopSuggestionCache{}, func() error { return nil }
	}

	redisCache := cache.NewRedisSuggestionCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := redisCache.Ping(pingCtx); err != nil {
		log.Warn("redis unavailable, using noop suggestion cache", "error", err)
		_ = redisCache.Close()
		return cache.NoopSuggestionCache{}, func() error { return nil }
	}
	log.Info("suggestion cache: redis", "addr", cfg.RedisAddr)
	return redisCache, redisCache.Close
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.OwnerUsername == "" {
		return fmt.Errorf("OWNER_USERNAME must not be empty")
	}
	if len(cfg.OwnerPassword) < 8 {
		return fmt.Errorf("OWNER_PASSWORD must be set and at least 8 characters")
	}
	return nil
}
