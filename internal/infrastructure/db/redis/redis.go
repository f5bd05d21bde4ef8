// Package redis backs the optional user read cache. Connectivity is
// verified up front; a failed connect means the service runs uncached
// rather than degraded at request time.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPingTimeout = 5 * time.Second

// Config carries the connection settings together with the TTL applied to
// cached user records, so the whole cache is configured in one place.
type Config struct {
	Addr     string
	Password string
	DB       int
	// PingTimeout bounds the connectivity check in Connect.
	PingTimeout time.Duration
	// CacheTTL bounds staleness of cached user records. Zero or negative
	// lets NewCachedUserRepository apply its default.
	CacheTTL time.Duration
}

func (cfg Config) pingTimeout() time.Duration {
	if cfg.PingTimeout <= 0 {
		return defaultPingTimeout
	}
	return cfg.PingTimeout
}

func newClient(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Connect builds the client and pings the server before handing it out, so
// user records are only ever cached through a connection known to work.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := newClient(cfg)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.pingTimeout())
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return client, nil
}
