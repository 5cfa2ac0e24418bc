// Package sqlitestore is the single-file storage backend used for local
// play. It mirrors the Postgres repositories over database/sql.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bolao/palpites/internal/metrics"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// Database holds the sqlite handle and its repositories
type Database struct {
	DB *sql.DB

	Guesses *GuessRepository
	Results *ResultRepository
}

// Open opens (creating if needed) the database file at path
func Open(ctx context.Context, path string) (*Database, error) {
	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite serialises writers; one connection avoids SQLITE_BUSY
	handle.SetMaxOpenConns(1)

	if err := handle.PingContext(ctx); err != nil {
		handle.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Str("path", path).Msg("Opened sqlite database")

	db := &Database{DB: handle}
	db.Guesses = &GuessRepository{db: handle}
	db.Results = &ResultRepository{db: handle}
	return db, nil
}

// Migrate creates the schema if it does not exist
func (db *Database) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS guesses (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			user_name   TEXT NOT NULL,
			round       INTEGER NOT NULL CHECK (round > 0),
			match_label TEXT NOT NULL,
			score_label TEXT NOT NULL,
			source      TEXT NOT NULL DEFAULT 'manual',
			created_at  TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_name, round, match_label)
		)`,
		`CREATE TABLE IF NOT EXISTS official_results (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			round      INTEGER NOT NULL CHECK (round > 0),
			home_team  TEXT NOT NULL,
			away_team  TEXT NOT NULL,
			home_goals INTEGER NOT NULL CHECK (home_goals >= 0),
			away_goals INTEGER NOT NULL CHECK (away_goals >= 0),
			source     TEXT NOT NULL DEFAULT 'cbf',
			fetched_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (round, home_team, away_team)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_guesses_user_round ON guesses (user_name, round)`,
	}

	for _, stmt := range stmts {
		if _, err := db.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return nil
}

// Close closes the database handle
func (db *Database) Close() error {
	if db.DB == nil {
		return nil
	}
	return db.DB.Close()
}

// Health pings the database
func (db *Database) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	stats := db.DB.Stats()
	metrics.UpdateDBConnectionStats(int32(stats.InUse), int32(stats.Idle))
	return nil
}

func observe(operation, table string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordDBQuery(operation, table, status, time.Since(start).Seconds())
}
