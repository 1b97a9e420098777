package postgres

import (
	"context"
	"fmt"
)

// migrations are applied in order at startup. The document model keeps the
// schema to a single table; new migrations append to this list.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		collection TEXT        NOT NULL,
		id         TEXT        NOT NULL,
		data       JSONB       NOT NULL,
		version    BIGINT      NOT NULL DEFAULT 1,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (collection, id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents (collection)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_streaks
		ON documents (((data->>'streak_count')::int))
		WHERE collection = 'users'`,
}

// Migrate applies all pending migrations.
func Migrate(ctx context.Context, conn *Connection) error {
	for i, stmt := range migrations {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
