package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	Pool *pgxpool.Pool
}

func NewDB(ctx context.Context, dsn string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &DB{Pool: pool}, nil
}

func (d *DB) Close() {
	if d != nil && d.Pool != nil {
		d.Pool.Close()
	}
}

var pgSchema = []string{
	`CREATE TABLE IF NOT EXISTS gradings (
  grading_id UUID PRIMARY KEY,
  essay_hash TEXT NOT NULL,
  original TEXT NOT NULL,
  annotated TEXT NOT NULL,
  summary TEXT NOT NULL DEFAULT '',
  grade TEXT NOT NULL,
  scores JSONB NOT NULL DEFAULT '{}'::jsonb,
  strengths TEXT NOT NULL,
  weaknesses TEXT NOT NULL,
  suggestions TEXT NOT NULL,
  warnings JSONB NOT NULL DEFAULT '[]'::jsonb,
  degraded JSONB NOT NULL DEFAULT '[]'::jsonb,
  provider TEXT NOT NULL,
  model TEXT NOT NULL,
  raw_reply TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS idx_gradings_created_at ON gradings(created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS llm_calls (
  call_id UUID PRIMARY KEY,
  operation TEXT NOT NULL,
  grading_id TEXT,
  provider_name TEXT NOT NULL,
  model TEXT NOT NULL,
  base_url TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  error_type TEXT,
  latency_ms BIGINT NOT NULL DEFAULT 0,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
}

func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range pgSchema {
		if _, err := d.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
	}
	return nil
}
