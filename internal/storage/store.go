package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"aegis-sync/internal/config"
)

const schemaSQL = `CREATE TABLE IF NOT EXISTS poll_events (
    id          BIGSERIAL PRIMARY KEY,
    resource    TEXT        NOT NULL,
    degraded    BOOLEAN     NOT NULL,
    error       TEXT,
    duration_ms BIGINT      NOT NULL,
    observed_at TIMESTAMPTZ NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS poll_events_resource_observed_idx ON poll_events (resource, observed_at);

CREATE TABLE IF NOT EXISTS notifications (
    id         BIGSERIAL PRIMARY KEY,
    level      TEXT        NOT NULL,
    title      TEXT        NOT NULL,
    message    TEXT        NOT NULL DEFAULT '',
    resource   TEXT        NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// ErrNoDSN is returned by Open when no journal database is configured.
var ErrNoDSN = errors.New("storage: database.dsn is empty")

// Open builds a pool for the poll journal, verifies it answers, and optionally
// creates the schema.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, ErrNoDSN
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if _, ok := poolConfig.ConnConfig.RuntimeParams["application_name"]; !ok {
		poolConfig.ConnConfig.RuntimeParams["application_name"] = "aegis-sync"
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping journal database: %w", err)
	}

	store := NewStore(pool)
	if cfg.EnsureSchema {
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, err
		}
	}
	return store, nil
}

// EnsureSchema creates the journal tables when they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
