package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer runs DDL; *pgxpool.Pool satisfies it
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// migrations are applied in order and must stay idempotent
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS demos (
	id               TEXT PRIMARY KEY,
	owner_id         TEXT NOT NULL,
	prompt           TEXT NOT NULL,
	archived         BOOLEAN NOT NULL DEFAULT false,
	selected_models  JSONB,
	selected_outputs JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE INDEX IF NOT EXISTS demos_owner_created_idx ON demos (owner_id, created_at DESC, id DESC)`,
	`CREATE TABLE IF NOT EXISTS model_outputs (
	id            TEXT PRIMARY KEY,
	demo_id       TEXT NOT NULL REFERENCES demos(id),
	model_id      TEXT NOT NULL,
	status        TEXT NOT NULL CHECK (status IN ('pending', 'generating', 'complete', 'error')),
	html          TEXT NOT NULL DEFAULT '',
	css           TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE INDEX IF NOT EXISTS model_outputs_demo_idx ON model_outputs (demo_id)`,
	`CREATE INDEX IF NOT EXISTS model_outputs_open_idx ON model_outputs (updated_at) WHERE status IN ('pending', 'generating')`,
}

// Migrate creates the arena tables and indexes if they do not exist
func Migrate(ctx context.Context, db Execer) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
