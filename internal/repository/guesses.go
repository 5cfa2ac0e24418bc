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

// GuessRepository handles guess database operations
type GuessRepository struct {
	db *Database
}

const upsertGuessQuery = `
	INSERT INTO guesses (user_name, round, match_label, score_label, source)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (user_name, round, match_label) DO UPDATE SET
		score_label = EXCLUDED.score_label,
		source = EXCLUDED.source,
		updated_at = NOW()
	RETURNING id, created_at, updated_at
`

// Save inserts or updates a single guess keyed by (user, round, match)
func (r *GuessRepository) Save(ctx context.Context, guess *models.Guess) (err error) {
	start := time.Now()
	defer func() { observe("upsert", "guesses", start, err) }()

	err = r.db.Pool.QueryRow(
		ctx, upsertGuessQuery,
		guess.UserName, guess.Round, guess.MatchLabel, guess.ScoreLabel, guess.Source,
	).Scan(&guess.ID, &guess.CreatedAt, &guess.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert guess: %w", err)
	}

	return nil
}

// SaveRound upserts a batch of guesses atomically
func (r *GuessRepository) SaveRound(ctx context.Context, guesses []*models.Guess) (err error) {
	if len(guesses) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { observe("upsert_batch", "guesses", start, err) }()

	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin guesses tx: %w", err)
	}
	// Rollback is a no-op once committed
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, g := range guesses {
		if err = tx.QueryRow(
			ctx, upsertGuessQuery,
			g.UserName, g.Round, g.MatchLabel, g.ScoreLabel, g.Source,
		).Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return fmt.Errorf("failed to upsert guess %q: %w", g.MatchLabel, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit guesses tx: %w", err)
	}

	log.Debug().
		Str("user", guesses[0].UserName).
		Int("round", guesses[0].Round).
		Int("count", len(guesses)).
		Msg("Guesses saved")

	return nil
}

// Load returns the user's guesses for a round keyed by match label.
// A round without guesses yields an empty map.
func (r *GuessRepository) Load(ctx context.Context, user string, round int) (_ map[string]string, err error) {
	start := time.Now()
	defer func() { observe("select", "guesses", start, err) }()

	query := `
		SELECT match_label, score_label
		FROM guesses
		WHERE user_name = $1 AND round = $2
	`

	rows, err := r.db.Pool.Query(ctx, query, user, round)
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

	query := `
		SELECT round, match_label, score_label
		FROM guesses
		WHERE user_name = $1 AND round <= $2
		ORDER BY round, match_label
	`

	rows, err := r.db.Pool.Query(ctx, query, user, cutoff)
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
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM guesses WHERE user_name = $1`, user).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count guesses: %w", err)
	}

	return count, nil
}
