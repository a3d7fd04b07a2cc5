package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/legaldesk/insights/internal/cache"
	"github.com/legaldesk/insights/internal/cache/memory"
	"github.com/legaldesk/insights/internal/cache/redis"
	"github.com/legaldesk/insights/internal/engine"
	"github.com/legaldesk/insights/internal/storage/sqlite"
	"github.com/legaldesk/insights/pkg/circuitbreaker"
	"github.com/legaldesk/insights/pkg/config"
	appLogger "github.com/legaldesk/insights/pkg/logger"
	"github.com/legaldesk/insights/pkg/retry"
)

type dependencies struct {
	DB     *sqlite.Client
	Engine *engine.Engine
	redis  *redis.Client
}

func (d *dependencies) Close() {
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			appLogger.Warn("Failed to close redis client", zap.Error(err))
		}
	}
	if err := d.DB.Close(); err != nil {
		appLogger.Warn("Failed to close SQLite client", zap.Error(err))
	}
}

func bootstrap(ctx context.Context, cfg *config.Config) (*dependencies, error) {
	db, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQLite client: %w", err)
	}

	if err := db.InitSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	deps := &dependencies{DB: db}

	var store cache.Store
	switch cfg.Cache.Backend {
	case "redis":
		client, err := connectRedis(ctx, cfg)
		if err != nil {
			appLogger.Warn("Redis unavailable, falling back to in-memory cache", zap.Error(err))
			store = memory.NewStore(cfg.Cache.MaxEntries)
		} else {
			deps.redis = client
			store = client
		}
	default:
		store = memory.NewStore(cfg.Cache.MaxEntries)
	}

	deps.Engine = engine.New(db, store, engineOptions(cfg))
	return deps, nil
}

func connectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	retryCfg := retry.DefaultConfig()
	retryCfg.Logger = appLogger.GetLogger()

	return retry.DoWithResult(ctx, retryCfg, "redis connect", func(ctx context.Context) (*redis.Client, error) {
		return redis.NewClient(ctx, redis.Options{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Breaker: circuitbreaker.Config{
				FailureThreshold: uint32(cfg.Cache.BreakerFailures),
				Timeout:          time.Duration(cfg.Cache.BreakerTimeoutSec) * time.Second,
			},
		})
	})
}
