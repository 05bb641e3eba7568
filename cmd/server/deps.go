package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/hint-trivia/internal/cache"
	"github.com/ashureev/hint-trivia/internal/config"
	"github.com/ashureev/hint-trivia/internal/content"
	"github.com/ashureev/hint-trivia/internal/events"
	"github.com/ashureev/hint-trivia/internal/store"
)

// deps holds the long-lived backends shared by the commands.
type deps struct {
	repo    store.Repository
	cache   cache.Cache
	rabbit  *events.RabbitMQ
	content *content.Service
}

// openDeps connects to the database and the optional Redis and RabbitMQ
// backends. Anything opened is closed again on error.
func openDeps(cfg *config.Config) (_ *deps, err error) {
	d := &deps{}
	defer func() {
		if err != nil {
			d.Close()
		}
	}()

	d.repo, err = store.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = d.repo.Ping(ctx); err != nil {
		return nil, fmt.Errorf("database health check: %w", err)
	}
	slog.Info("Database connected", "driver", cfg.DBDriver)

	if cfg.RedisAddr != "" {
		var redisCache *cache.Redis
		redisCache, err = cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		d.cache = redisCache
		slog.Info("Redis content cache connected", "addr", cfg.RedisAddr)
	} else {
		d.cache = cache.NewMemory()
		slog.Info("Using in-memory content cache (REDIS_ADDR not set)")
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.RabbitMQURL != "" {
		d.rabbit, err = events.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			return nil, err
		}
		publisher = d.rabbit
		slog.Info("RabbitMQ connected", "exchange", events.ExchangeContentChanged)
	} else {
		slog.Info("Content events disabled (RABBITMQ_URL not set)")
	}

	d.content = content.NewService(d.repo, d.cache, publisher, cfg.CacheTTL)
	return d, nil
}

// Close releases every opened backend.
func (d *deps) Close() {
	if d.rabbit != nil {
		if err := d.rabbit.Close(); err != nil {
			slog.Error("Failed to close RabbitMQ", "error", err)
		}
	}
	if d.cache != nil {
		if err := d.cache.Close(); err != nil {
			slog.Error("Failed to close cache", "error", err)
		}
	}
	if d.repo != nil {
		if err := d.repo.Close(); err != nil {
			slog.Error("Failed to close repository", "error", err)
		}
	}
}
