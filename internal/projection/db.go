// Package projection mirrors the authoritative XML record stores into a
// normalized PostgreSQL schema purely for fast sorted/filtered reads (job
// history pages, the "reason to wait" diagnostic history, schedule status
// queries). It is never read to make a scheduling or dispatch decision,
// and is fully rebuildable from the stores at any time.
package projection

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

// DB wraps a PostgreSQL connection pool, mirroring database.DB's shape.
type DB struct {
	*sql.DB
}

func Open(dsn string, maxConns, minConns int) (*DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("projection: opening database: %w", err)
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(minConns)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("projection: pinging database: %w", err)
	}
	log.Info("projection: PostgreSQL connection established")
	return &DB{db}, nil
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := db.DB.ExecContext(ctx, query, args...)
	log.WithFields(log.Fields{
		"query": query, "duration": time.Since(start), "error": err,
	}).Debug("projection: SQL exec")
	return result, err
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := db.DB.QueryContext(ctx, query, args...)
	log.WithFields(log.Fields{
		"query": query, "duration": time.Since(start), "error": err,
	}).Debug("projection: SQL query")
	return rows, err
}

// CreateSchema idempotently creates the projection tables. Migrations are
// applied inline rather than via a migration tool, appropriate for this
// repo's scale.
func CreateSchema(ctx context.Context, db *DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			owner TEXT NOT NULL,
			config_id TEXT NOT NULL,
			result TEXT NOT NULL DEFAULT '',
			final BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			finalized_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			job_id TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			taskdef_id TEXT NOT NULL,
			state TEXT NOT NULL,
			priority INT NOT NULL DEFAULT 0,
			PRIMARY KEY (job_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS task_runs (
			job_id TEXT NOT NULL,
			task_name TEXT NOT NULL,
			run_id TEXT PRIMARY KEY,
			runner_id TEXT NOT NULL DEFAULT '',
			result TEXT NOT NULL DEFAULT '',
			start_time TIMESTAMPTZ,
			end_time TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			job_id TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			state TEXT NOT NULL,
			locator TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (job_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS schedules (
			id TEXT PRIMARY KEY,
			owner TEXT NOT NULL,
			repeat TEXT NOT NULL,
			suspended BOOLEAN NOT NULL DEFAULT FALSE,
			last_start_time TIMESTAMPTZ,
			tag_values TEXT[] NOT NULL DEFAULT '{}'
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("projection: creating schema: %w", err)
		}
	}
	return nil
}
