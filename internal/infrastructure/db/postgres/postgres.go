// Package postgres implements the durable repositories on PostgreSQL via
// pgx. It owns the relational layout: users and roles plus a join table,
// with unique constraints backing the username/email/role invariants. The
// constraints are the authoritative guard against concurrent duplicate writes.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/accounthub/user-management/internal/core/domain"
)

const defaultTimeout = 10 * time.Second

// Config captures the minimal settings required to establish a connection pool.
type Config struct {
	DSN      string
	MaxConns int32
	Timeout  time.Duration
}

// Connect establishes a pgx connection pool and verifies connectivity with a
// ping. A default timeout is applied when none is provided.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS roles (
	id    BIGSERIAL PRIMARY KEY,
	key   TEXT NOT NULL UNIQUE,
	name  TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	is_verified   BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS user_roles (
	user_id  BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	role_id  BIGINT NOT NULL REFERENCES roles (id) ON DELETE CASCADE,
	position INT NOT NULL DEFAULT 0,
	PRIMARY KEY (user_id, role_id)
);
`

// EnsureSchema creates the tables when they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres ensure schema: %w", err)
	}
	return nil
}

// ResetSchema drops and recreates all tables. Development only.
func ResetSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, `DROP TABLE IF EXISTS user_roles, users, roles`); err != nil {
		return fmt.Errorf("postgres reset schema: %w", err)
	}
	return EnsureSchema(ctx, pool)
}

// SeedDefaultRole provisions the role attached to every new user. Safe to run
// on every startup; an already-seeded role is left untouched.
func SeedDefaultRole(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx,
		`INSERT INTO roles (key, name) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING`,
		domain.DefaultRoleKey, domain.DefaultRoleName,
	)
	if err != nil {
		return fmt.Errorf("seed default role: %w", err)
	}
	return nil
}
