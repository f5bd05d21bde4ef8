package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/accounthub/user-management/internal/api"
	"github.com/accounthub/user-management/internal/infrastructure/config"
	"github.com/accounthub/user-management/internal/infrastructure/db/postgres"
	"github.com/accounthub/user-management/internal/infrastructure/db/redis"
	"github.com/accounthub/user-management/pkg/logger"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		lg := logger.Init(logger.Options{})
		lg.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	// --- PostgreSQL ---
	pool, err := postgres.Connect(ctx, postgres.Config{
		DSN:      cfg.Postgres.DSN,
		MaxConns: cfg.Postgres.MaxConns,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	if cfg.Postgres.Reset {
		log.Warn().Msg("resetting database schema")
		if err := postgres.ResetSchema(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to reset schema")
		}
	} else if err := postgres.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure schema")
	}

	// Every user created through the API holds this role, so it must exist
	// before the first request is served.
	if err := postgres.SeedDefaultRole(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to seed default role")
	}

	// --- Redis (optional read cache) ---
	rcfg := redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		CacheTTL: time.Duration(cfg.Redis.CacheTTLSeconds) * time.Second,
	}
	var rdb *goredis.Client
	if cfg.Redis.Enabled {
		client, err := redis.Connect(ctx, rcfg)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, running without the user read cache")
		} else {
			rdb = client
			defer client.Close()
		}
	}

	// --- HTTP server ---
	e := api.NewRouter(pool, rdb, rcfg.CacheTTL, log)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}
