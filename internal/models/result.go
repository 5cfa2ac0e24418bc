package models

import (
	"time"

	"bolao/palpites/internal/standings"
)

// OfficialResult is a played match as published by the results source.
type OfficialResult struct {
	ID        int64     `db:"id" json:"-"`
	Round     int       `db:"round" json:"round" validate:"min=1"`
	HomeTeam  string    `db:"home_team" json:"home" validate:"required"`
	AwayTeam  string    `db:"away_team" json:"away" validate:"required,nefield=HomeTeam"`
	HomeGoals int       `db:"home_goals" json:"home_goals" validate:"min=0"`
	AwayGoals int       `db:"away_goals" json:"away_goals" validate:"min=0"`
	Source    string    `db:"source" json:"source"`
	FetchedAt time.Time `db:"fetched_at" json:"fetched_at"`
}

// Validate validates the result before it is stored
func (r *OfficialResult) Validate() error {
	return validate.Struct(r)
}

// MatchLabel returns the "Home x Away" label
func (r *OfficialResult) MatchLabel() string {
	return standings.Match{Home: r.HomeTeam, Away: r.AwayTeam}.Label()
}

// ScoreLabel returns the "HxA" label
func (r *OfficialResult) ScoreLabel() string {
	return standings.Score{Home: r.HomeGoals, Away: r.AwayGoals}.Label()
}

// ToRawResult converts the result to calculator input
func (r *OfficialResult) ToRawResult() standings.RawResult {
	return standings.RawResult{
		Round:      r.Round,
		MatchLabel: r.MatchLabel(),
		ScoreLabel: r.ScoreLabel(),
	}
}
