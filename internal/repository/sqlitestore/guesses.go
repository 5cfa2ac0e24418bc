package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bolao/palpites/internal/models"
	"bolao/palpites/internal/standings"
)

// GuessRepository stores guesses in sqlite
type GuessRepository struct {
	db *sql.DB
}

const upsertGuess = `
	INSERT INTO guesses (user_name, round, match_label, score_label, source)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (user_name, round, match_label) DO UPDATE SET
		score_label = excluded.score_label,
		source = excluded.source,
		updated_at = CURRENT_TIMESTAMP
`

// Save inserts or updates one guess
func (r *GuessRepository) Save(ctx context.Context, guess *models.Guess) (err error) {
	start := time.Now()
	defer func() { observe("upsert", "guesses", start, err) }()

	if _, err = r.db.ExecContext(ctx, upsertGuess,
		guess.UserName, guess.Round, guess.MatchLabel, guess.ScoreLabel, guess.Source,
	); err != nil {
		return fmt.Errorf("failed to upsert guess: %w", err)
	}
	return nil
}

// SaveRound upserts a batch of guesses in one transaction
func (r *GuessRepository) SaveRound(ctx context.Context, guesses []*models.Guess) (err error) {
	if len(guesses) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { observe("upsert_batch", "guesses", start, err) }()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin guesses tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, upsertGuess)
	if err != nil {
		return fmt.Errorf("failed to prepare guess upsert: %w", err)
	}
	defer stmt.Close()

	for _, g := range guesses {
		if _, err = stmt.ExecContext(ctx, g.UserName, g.Round, g.MatchLabel, g.ScoreLabel, g.Source); err != nil {
			return fmt.Errorf("failed to upsert guess %q: %w", g.MatchLabel, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit guesses tx: %w", err)
	}
	return nil
}

// Load returns the user's guesses for round keyed by match label
func (r *GuessRepository) Load(ctx context.Context, user string, round int) (_ map[string]string, err error) {
	start := time.Now()
	defer func() { observe("select", "guesses", start, err) }()

	rows, err := r.db.QueryContext(ctx,
		`SELECT match_label, score_label FROM guesses WHERE user_name = ? AND round = ?`,
		user, round,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load guesses: %w", err)
	}
	defer rows.Close()

	guesses := make(map[string]string)
	for rows.Next() {
		var match, score string
		if err = rows.Scan(&match, &score); err != nil {
			return nil, fmt.Errorf("failed to scan guess: %w", err)
		}
		guesses[match] = score
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating guesses: %w", err)
	}
	return guesses, nil
}

// History returns every guess of user up to and including round cutoff
func (r *GuessRepository) History(ctx context.Context, user string, cutoff int) (_ []standings.RawResult, err error) {
	start := time.Now()
	defer func() { observe("select", "guesses", start, err) }()

	rows, err := r.db.QueryContext(ctx, `
		SELECT round, match_label, score_label
		FROM guesses
		WHERE user_name = ? AND round <= ?
		ORDER BY round, match_label`,
		user, cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query guess history: %w", err)
	}
	defer rows.Close()

	var history []standings.RawResult
	for rows.Next() {
		var raw standings.RawResult
		if err = rows.Scan(&raw.Round, &raw.MatchLabel, &raw.ScoreLabel); err != nil {
			return nil, fmt.Errorf("failed to scan guess: %w", err)
		}
		history = append(history, raw)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating guess history: %w", err)
	}
	return history, nil
}

// Count returns the number of guesses stored for user
func (r *GuessRepository) Count(ctx context.Context, user string) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM guesses WHERE user_name = ?`, user).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count guesses: %w", err)
	}
	return count, nil
}
