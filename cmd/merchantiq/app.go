package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/quantrail/merchantiq/internal/cache"
	"github.com/quantrail/merchantiq/internal/config"
	"github.com/quantrail/merchantiq/internal/engine"
	"github.com/quantrail/merchantiq/internal/store"
)

// app holds the wired dependency graph shared by all commands.
type app struct {
	cfgStore *config.Store
	logger   *logrus.Logger
	db       *store.PostgresDB
	redis    *redis.Client
	repo     *store.CachedRepository
}

// newApp connects storage shared by all commands.
func newApp(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*app, error) {
	db, err := store.NewPostgresConnection(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	quoteCache := cache.NewQuoteCache(redisClient, cfg.Redis.CacheDuration(), logger)
	repo := store.NewCachedRepository(store.NewRepository(db.Pool), quoteCache)

	return &app{
		cfgStore: config.NewStore(cfg),
		logger:   logger,
		db:       db,
		redis:    redisClient,
		repo:     repo,
	}, nil
}

// engine assembles the decision pipeline from the current configuration
// snapshot, so commands and the watched serve mode always act on the
// newest thresholds, FX rates and fee schedules.
func (a *app) engine() *engine.Engine {
	return engine.New(a.repo, a.cfgStore.Snapshot(), a.logger)
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close Redis connection")
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
