package repository

import (
	"context"
	"fmt"
	"time"

	"bolao/palpites/internal/metrics"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Database holds the database connection pool and provides access to repositories
type Database struct {
	Pool *pgxpool.Pool

	// Repositories
	Guesses *GuessRepository
	Results *ResultRepository
}

// Config holds database configuration
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
}

// NewDatabase creates a new database connection pool and initializes repositories
func NewDatabase(ctx context.Context, cfg Config) (*Database, error) {
	// Build connection string
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
		cfg.SSLMode,
	)

	// Configure connection pool
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Two users and a scheduler; a small pool is plenty
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Str("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("Successfully connected to database")

	db := &Database{
		Pool: pool,
	}

	db.Guesses = &GuessRepository{db: db}
	db.Results = &ResultRepository{db: db}

	return db, nil
}

// Migrate creates the schema if it does not exist
func (db *Database) Migrate(ctx context.Context) error {
	const guessesTable = `
CREATE TABLE IF NOT EXISTS guesses (
    id          BIGSERIAL PRIMARY KEY,
    user_name   TEXT NOT NULL,
    round       INT NOT NULL CHECK (round > 0),
    match_label TEXT NOT NULL,
    score_label TEXT NOT NULL,
    source      TEXT NOT NULL DEFAULT 'manual',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (user_name, round, match_label)
);
`

	const officialResultsTable = `
CREATE TABLE IF NOT EXISTS official_results (
    id         BIGSERIAL PRIMARY KEY,
    round      INT NOT NULL CHECK (round > 0),
    home_team  TEXT NOT NULL,
    away_team  TEXT NOT NULL,
    home_goals INT NOT NULL CHECK (home_goals >= 0),
    away_goals INT NOT NULL CHECK (away_goals >= 0),
    source     TEXT NOT NULL DEFAULT 'cbf',
    fetched_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (round, home_team, away_team)
);
`

	const guessesByUserRound = `CREATE INDEX IF NOT EXISTS idx_guesses_user_round ON guesses (user_name, round);`

	for _, stmt := range []string{guessesTable, officialResultsTable, guessesByUserRound} {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}

	log.Info().Msg("Database migrations applied")
	return nil
}

// Close closes the database connection pool
func (db *Database) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		log.Info().Msg("Database connection pool closed")
	}
}

// Health checks if the database is healthy
func (db *Database) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	stat := db.Pool.Stat()
	metrics.UpdateDBConnectionStats(stat.AcquiredConns(), stat.IdleConns())

	return nil
}

// PoolStats returns database pool statistics
func (db *Database) PoolStats() map[string]interface{} {
	stat := db.Pool.Stat()
	return map[string]interface{}{
		"total_conns":    stat.TotalConns(),
		"acquired_conns": stat.AcquiredConns(),
		"idle_conns":     stat.IdleConns(),
		"max_conns":      stat.MaxConns(),
	}
}

// observe records a query outcome
func observe(operation, table string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordDBQuery(operation, table, status, time.Since(start).Seconds())
}
