// Package app assembles the storage layer shared by both service binaries.
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/config"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/db"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/discovery"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/moderation"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/search"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/store/memory"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/store/postgres"
)

// Store is everything a backend must serve.
type Store interface {
	discovery.LocationSource
	discovery.Sink
	moderation.Store
	search.Catalog
	search.ProfileSource
}

// Storage holds the opened backend. Redis is nil on the memory backend.
type Storage struct {
	Store   Store
	Redis   *redis.Client
	Health  func(ctx context.Context) error
	closers []func()
}

// Close releases connections in reverse order of opening.
func (s *Storage) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// OpenStorage connects to the configured backend.
func OpenStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Storage, error) {
	if cfg.StorageBackend == config.BackendMemory {
		log.Warn("using in-memory storage; data is lost on exit")
		return &Storage{Store: memory.New()}, nil
	}

	s := &Storage{}
	log.Info("connecting to PostgreSQL")
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	s.closers = append(s.closers, pool.Close)
	log.Info("PostgreSQL connected")

	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			s.Close()
			return nil, err
		}
		log.Info("schema migrated")
	}

	log.Info("connecting to Redis")
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	s.closers = append(s.closers, func() { _ = rdb.Close() })
	log.Info("Redis connected")

	s.Store = postgres.New(pool)
	s.Redis = rdb
	s.Health = func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	}
	return s, nil
}
