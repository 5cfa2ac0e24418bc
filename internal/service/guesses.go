package service

import (
	"context"
	"fmt"

	"bolao/palpites/internal/metrics"
	"bolao/palpites/internal/models"
	"bolao/palpites/internal/standings"

	"github.com/rs/zerolog/log"
)

// RoundSheet returns every fixture of round with the user's saved guess,
// blank where there is none.
func (p *Pool) RoundSheet(ctx context.Context, user string, round int) (*models.RoundSheet, error) {
	if err := p.checkUser(user); err != nil {
		return nil, err
	}
	labels, err := p.Matches(round)
	if err != nil {
		return nil, err
	}

	saved, err := p.guesses.Load(ctx, user, round)
	if err != nil {
		return nil, fmt.Errorf("failed to load guesses: %w", err)
	}

	sheet := &models.RoundSheet{
		User:    user,
		Round:   round,
		Entries: make([]models.SheetEntry, len(labels)),
	}
	for i, label := range labels {
		score := saved[label]
		if score != "" {
			sheet.Filled++
		}
		sheet.Entries[i] = models.SheetEntry{MatchLabel: label, ScoreLabel: score}
	}
	return sheet, nil
}

// GuessCount returns how many guesses the user has saved across the season
func (p *Pool) GuessCount(ctx context.Context, user string) (int, error) {
	if err := p.checkUser(user); err != nil {
		return 0, err
	}
	n, err := p.guesses.Count(ctx, user)
	if err != nil {
		return 0, fmt.Errorf("failed to count guesses: %w", err)
	}
	return n, nil
}

// SaveGuesses stores the user's guesses for round. Every label must be one
// of the round's fixtures and every non-blank score must parse; nothing is
// saved otherwise. Returns the number of guesses stored.
func (p *Pool) SaveGuesses(ctx context.Context, user string, round int, input *models.GuessInput) (int, error) {
	if err := p.checkUser(user); err != nil {
		return 0, err
	}
	labels, err := p.Matches(round)
	if err != nil {
		return 0, err
	}
	if err := input.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", standings.ErrInvalidArgument, err)
	}

	known := make(map[string]bool, len(labels))
	for _, l := range labels {
		known[l] = true
	}

	guesses := input.ToGuesses(user, round)
	for _, g := range guesses {
		if !known[g.MatchLabel] {
			return 0, fmt.Errorf("%w: %q in round %d", ErrUnknownMatch, g.MatchLabel, round)
		}
		score, ok := standings.NormalizeScoreLabel(g.ScoreLabel)
		if !ok {
			return 0, fmt.Errorf("%w: %q for %q", ErrInvalidScore, g.ScoreLabel, g.MatchLabel)
		}
		g.ScoreLabel = score
	}

	if err := p.guesses.SaveRound(ctx, guesses); err != nil {
		metrics.RecordError("service", "save_guesses")
		return 0, fmt.Errorf("failed to save guesses: %w", err)
	}

	source := input.Source
	if source == "" {
		source = models.SourceManual
	}
	metrics.RecordGuessesSaved(user, source, len(guesses))
	p.invalidate(ctx, user)

	log.Info().
		Str("user", user).
		Int("round", round).
		Int("count", len(guesses)).
		Str("source", source).
		Msg("Guesses saved")

	return len(guesses), nil
}

// Extraction is the outcome of reading a guess sheet photo. It is a draft
// for the user to review; nothing is saved.
type Extraction struct {
	Guesses map[string]string `json:"guesses"`
	Failed  bool              `json:"failed"`
}

// ExtractGuesses reads the round's guesses from a photo. Extraction
// failures degrade to an empty draft; only user and round errors are
// returned.
func (p *Pool) ExtractGuesses(ctx context.Context, user string, round int, image []byte, mimeType string) (*Extraction, error) {
	if err := p.checkUser(user); err != nil {
		return nil, err
	}
	labels, err := p.Matches(round)
	if err != nil {
		return nil, err
	}

	if p.vision == nil {
		metrics.RecordExtraction("unavailable", 0)
		return &Extraction{Guesses: map[string]string{}, Failed: true}, nil
	}

	guesses, err := p.vision.Extract(ctx, image, mimeType, labels)
	if err != nil {
		log.Warn().
			Err(err).
			Str("user", user).
			Int("round", round).
			Msg("Guess extraction failed")
		metrics.RecordExtraction("error", 0)
		return &Extraction{Guesses: map[string]string{}, Failed: true}, nil
	}
	if guesses == nil {
		guesses = map[string]string{}
	}

	metrics.RecordExtraction("success", len(guesses))
	return &Extraction{Guesses: guesses}, nil
}
