package repository

import (
	"context"
	"fmt"
	"time"

	"bolao/palpites/internal/models"
	"bolao/palpites/internal/standings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// ResultRepository handles official result database operations
type ResultRepository struct {
	db *Database
}

// Upsert inserts or updates official results keyed by (round, home, away)
func (r *ResultRepository) Upsert(ctx context.Context, results []*models.OfficialResult) (err error) {
	if len(results) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { observe("upsert_batch", "official_results", start, err) }()

	query := `
		INSERT INTO official_results (round, home_team, away_team, home_goals, away_goals, source)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (round, home_team, away_team) DO UPDATE SET
			home_goals = EXCLUDED.home_goals,
			away_goals = EXCLUDED.away_goals,
			source = EXCLUDED.source,
			fetched_at = NOW()
		RETURNING id, fetched_at
	`

	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin results tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, res := range results {
		if err = tx.QueryRow(
			ctx, query,
			res.Round, res.HomeTeam, res.AwayTeam, res.HomeGoals, res.AwayGoals, res.Source,
		).Scan(&res.ID, &res.FetchedAt); err != nil {
			return fmt.Errorf("failed to upsert result %s: %w", res.MatchLabel(), err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit results tx: %w", err)
	}

	log.Debug().Int("count", len(results)).Msg("Official results saved")
	return nil
}

// History returns official results up to and including round cutoff as
// calculator input
func (r *ResultRepository) History(ctx context.Context, cutoff int) (_ []standings.RawResult, err error) {
	start := time.Now()
	defer func() { observe("select", "official_results", start, err) }()

	query := `
		SELECT round, home_team, away_team, home_goals, away_goals
		FROM official_results
		WHERE round <= $1
		ORDER BY round, home_team
	`

	rows, err := r.db.Pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var history []standings.RawResult
	for rows.Next() {
		var res models.OfficialResult
		if err = rows.Scan(&res.Round, &res.HomeTeam, &res.AwayTeam, &res.HomeGoals, &res.AwayGoals); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		history = append(history, res.ToRawResult())
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}

	return history, nil
}

// LatestRound returns the highest round with at least one official result,
// or 0 when none are stored
func (r *ResultRepository) LatestRound(ctx context.Context) (int, error) {
	var round int
	err := r.db.Pool.QueryRow(ctx, `SELECT COALESCE(MAX(round), 0) FROM official_results`).Scan(&round)
	if err != nil {
		return 0, fmt.Errorf("failed to query latest round: %w", err)
	}
	return round, nil
}
