package models

import (
	"strings"
	"time"

	"bolao/palpites/internal/standings"
)

// Guess sources
const (
	SourceManual = "manual"
	SourceVision = "vision"
	SourceImport = "import"
)

// Guess is one user's predicted score for one match of a round.
// (UserName, Round, MatchLabel) is unique.
type Guess struct {
	ID         int64     `db:"id" json:"-"`
	UserName   string    `db:"user_name" json:"user"`
	Round      int       `db:"round" json:"round"`
	MatchLabel string    `db:"match_label" json:"match"`
	ScoreLabel string    `db:"score_label" json:"score"`
	Source     string    `db:"source" json:"source"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// ToRawResult converts the guess to calculator input
func (g *Guess) ToRawResult() standings.RawResult {
	return standings.RawResult{
		Round:      g.Round,
		MatchLabel: g.MatchLabel,
		ScoreLabel: g.ScoreLabel,
	}
}

// GuessInput is the body of a round save request
type GuessInput struct {
	Guesses map[string]string `json:"guesses" validate:"required,min=1,dive,keys,required,max=80,endkeys,max=16"`
	Source  string            `json:"source" validate:"omitempty,oneof=manual vision import"`
}

// Validate validates the input shape; label semantics are checked against
// the round's fixtures by the service.
func (gi *GuessInput) Validate() error {
	return validate.Struct(gi)
}

// ToGuesses converts GuessInput to Guess models for user and round.
// Blank scores are dropped: an empty field means "no guess yet".
func (gi *GuessInput) ToGuesses(user string, round int) []*Guess {
	source := gi.Source
	if source == "" {
		source = SourceManual
	}

	guesses := make([]*Guess, 0, len(gi.Guesses))
	for match, score := range gi.Guesses {
		score = strings.TrimSpace(score)
		if score == "" {
			continue
		}
		guesses = append(guesses, &Guess{
			UserName:   user,
			Round:      round,
			MatchLabel: strings.TrimSpace(match),
			ScoreLabel: score,
			Source:     source,
		})
	}
	return guesses
}

// SheetEntry is one line of a round sheet: the fixture and the user's guess,
// empty when none was saved.
type SheetEntry struct {
	MatchLabel string `json:"match"`
	ScoreLabel string `json:"score"`
}

// RoundSheet is what a user sees when editing a round.
type RoundSheet struct {
	User    string       `json:"user"`
	Round   int          `json:"round"`
	Entries []SheetEntry `json:"entries"`
	Filled  int          `json:"filled"`
}
