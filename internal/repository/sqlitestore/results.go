package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bolao/palpites/internal/models"
	"bolao/palpites/internal/standings"
)

// ResultRepository stores official results in sqlite
type ResultRepository struct {
	db *sql.DB
}

// Upsert inserts or updates results keyed by (round, home, away)
func (r *ResultRepository) Upsert(ctx context.Context, results []*models.OfficialResult) (err error) {
	if len(results) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { observe("upsert_batch", "official_results", start, err) }()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin results tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO official_results (round, home_team, away_team, home_goals, away_goals, source)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (round, home_team, away_team) DO UPDATE SET
			home_goals = excluded.home_goals,
			away_goals = excluded.away_goals,
			source = excluded.source,
			fetched_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("failed to prepare result upsert: %w", err)
	}
	defer stmt.Close()

	for _, res := range results {
		if _, err = stmt.ExecContext(ctx,
			res.Round, res.HomeTeam, res.AwayTeam, res.HomeGoals, res.AwayGoals, res.Source,
		); err != nil {
			return fmt.Errorf("failed to upsert result %s: %w", res.MatchLabel(), err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit results tx: %w", err)
	}
	return nil
}

// History returns results up to and including round cutoff
func (r *ResultRepository) History(ctx context.Context, cutoff int) (_ []standings.RawResult, err error) {
	start := time.Now()
	defer func() { observe("select", "official_results", start, err) }()

	rows, err := r.db.QueryContext(ctx, `
		SELECT round, home_team, away_team, home_goals, away_goals
		FROM official_results
		WHERE round <= ?
		ORDER BY round, home_team`,
		cutoff,
	)
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

// LatestRound returns the highest stored round, 0 when empty
func (r *ResultRepository) LatestRound(ctx context.Context) (int, error) {
	var round int
	if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(round), 0) FROM official_results`).Scan(&round); err != nil {
		return 0, fmt.Errorf("failed to query latest round: %w", err)
	}
	return round, nil
}
