// Package postgres implements the task, history and profile stores on
// PostgreSQL via database/sql and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, connString string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate creates the schema when missing. Idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id            UUID PRIMARY KEY,
			user_id       TEXT NOT NULL,
			title         TEXT NOT NULL,
			raw_content   TEXT NOT NULL,
			ai_summary    TEXT NOT NULL DEFAULT '',
			confidence    DOUBLE PRECISION NOT NULL DEFAULT 0.5,
			category      TEXT NOT NULL DEFAULT '',
			bucket        TEXT NOT NULL,
			completed     BOOLEAN NOT NULL DEFAULT FALSE,
			completed_at  TIMESTAMPTZ,
			is_focus      BOOLEAN NOT NULL DEFAULT FALSE,
			focus_date    TIMESTAMPTZ,
			due_at        TIMESTAMPTZ,
			remind_at     TIMESTAMPTZ,
			tiny          BOOLEAN NOT NULL DEFAULT FALSE,
			heavy         BOOLEAN NOT NULL DEFAULT FALSE,
			priority      TEXT NOT NULL DEFAULT '',
			keywords      TEXT[] NOT NULL DEFAULT '{}',
			subtasks      TEXT[] NOT NULL DEFAULT '{}',
			created_at    TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_user_open
			ON tasks (user_id) WHERE NOT completed`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_user_completed_at
			ON tasks (user_id, completed_at) WHERE completed`,
		`CREATE TABLE IF NOT EXISTS profiles (
			user_id          TEXT PRIMARY KEY,
			goal             TEXT NOT NULL DEFAULT '',
			categories       TEXT[] NOT NULL DEFAULT '{}',
			category_weights JSONB NOT NULL DEFAULT '{}',
			persona          JSONB NOT NULL DEFAULT '{}'
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
