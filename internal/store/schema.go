package store

import (
	"context"
	"database/sql"
)

// Schema creates the tables the service relies on. The unique constraints on
// roll_map and attendance are load-bearing: the admission path uses
// ON CONFLICT DO NOTHING against them instead of read-then-write.
const Schema = `
CREATE TABLE IF NOT EXISTS classroom_settings (
    class_name  TEXT PRIMARY KEY,
    code        TEXT NOT NULL DEFAULT '1234',
    daily_limit INTEGER NOT NULL DEFAULT 10 CHECK (daily_limit >= 1),
    is_open     BOOLEAN NOT NULL DEFAULT FALSE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS roll_map (
    class_name  TEXT NOT NULL REFERENCES classroom_settings(class_name),
    roll_number TEXT NOT NULL,
    name        TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (class_name, roll_number)
);

CREATE TABLE IF NOT EXISTS attendance (
    id          UUID PRIMARY KEY,
    class_name  TEXT NOT NULL REFERENCES classroom_settings(class_name),
    roll_number TEXT NOT NULL,
    name        TEXT NOT NULL,
    day         DATE NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (class_name, roll_number, day)
);

CREATE INDEX IF NOT EXISTS idx_attendance_class_day ON attendance(class_name, day);
`

// Migrate applies the schema. Safe to run on every startup.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, Schema)
	return err
}
