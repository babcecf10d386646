package db_client

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		username      TEXT PRIMARY KEY,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS drawings (
		id         TEXT PRIMARY KEY,
		owner      TEXT NOT NULL REFERENCES users(username),
		title      TEXT NOT NULL,
		width      DOUBLE PRECISION NOT NULL,
		height     DOUBLE PRECISION NOT NULL,
		background TEXT NOT NULL,
		strokes    JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS doc_updates (
		id          BIGSERIAL PRIMARY KEY,
		stream_id   TEXT NOT NULL UNIQUE,
		room        TEXT NOT NULL,
		conn_id     BIGINT NOT NULL,
		payload     JSONB NOT NULL,
		received_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS doc_updates_room_idx ON doc_updates (room)`,
	`CREATE TABLE IF NOT EXISTS room_snapshots (
		room       TEXT PRIMARY KEY,
		strokes    JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate applies the schema idempotently at boot.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}
	return nil
}
