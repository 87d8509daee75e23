package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jo-hoe/imageroulette/internal/backend/cache"
	"github.com/jo-hoe/imageroulette/internal/backend/database"
	"github.com/jo-hoe/imageroulette/internal/backend/degradation"
	"github.com/prometheus/client_golang/prometheus"
)

// NewCoreServiceFromConfig opens the configured store and cache and wires a
// CoreService around them. Metrics are registered with reg.
func NewCoreServiceFromConfig(ctx context.Context, config *ServiceConfig, reg prometheus.Registerer) (*CoreService, error) {
	store, err := getDatabaseService(ctx, config)
	if err != nil {
		return nil, err
	}

	metrics := NewMetrics(reg)
	deps := Dependencies{
		Store:    store,
		Metrics:  metrics,
		Pipeline: degradation.NewPipeline(nil, degradation.NewEngine(), metrics),
	}

	switch config.Cache.Type {
	case "redis":
		client, err := cache.NewRedisClient(ctx, config.Cache.Address, config.Cache.Password, config.Cache.DB)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize cache: %w", err)
		}
		deps.Views = cache.NewRedisViewCounter(client)
		deps.LoginLimiter = cache.NewRedisRateLimiter(client, config.Admin.MaxLoginAttempts, config.Admin.LoginWindow)
		deps.Closers = append(deps.Closers, client.Close)
		slog.Info("cache initialized successfully", "type", "redis", "address", config.Cache.Address)
	default:
		deps.LoginLimiter = cache.NewMemoryRateLimiter(config.Admin.MaxLoginAttempts, config.Admin.LoginWindow, cache.DefaultMemoryCapacity)
		slog.Info("cache initialized successfully", "type", "memory")
	}

	return NewCoreService(config, deps), nil
}

func getDatabaseService(ctx context.Context, config *ServiceConfig) (database.RecordStore, error) {
	databaseService, err := database.NewDatabase(ctx, config.Database.Type, config.Database.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("database initialized successfully", "type", config.Database.Type)
	return databaseService, nil
}
