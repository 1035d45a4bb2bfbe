package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS records (
    id BIGSERIAL PRIMARY KEY,
    student_id TEXT NOT NULL,
    name TEXT NOT NULL,
    reason TEXT NOT NULL,
    points INTEGER NOT NULL,
    point_type TEXT NOT NULL DEFAULT 'award',
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    record_date TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_records_student_id ON records (student_id)`,
	`CREATE INDEX IF NOT EXISTS idx_records_record_date ON records (record_date DESC, recorded_at DESC)`,
	`CREATE TABLE IF NOT EXISTS credentials (
    id SMALLINT PRIMARY KEY CHECK (id = 1),
    password_hash TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
}

// Migrate creates the tables used by the points ledger when they are missing.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
