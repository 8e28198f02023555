package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pool pinned to UTC and verifies it with a ping
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	poolConfig.ConnConfig.RuntimeParams["timezone"] = "UTC"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS geoqa_examples (
	id          TEXT PRIMARY KEY,
	dataset     TEXT NOT NULL,
	data        JSONB NOT NULL,
	input_keys  TEXT[] NOT NULL DEFAULT '{}',
	output_keys TEXT[] NOT NULL DEFAULT '{}',
	source      TEXT,
	created_at  TIMESTAMP NOT NULL DEFAULT NOW(),
	deleted_at  TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_geoqa_examples_dataset
	ON geoqa_examples (dataset, created_at) WHERE deleted_at IS NULL;
`

// EnsureSchema creates the tables used by the repositories when missing
func EnsureSchema(ctx context.Context, db Querier) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
