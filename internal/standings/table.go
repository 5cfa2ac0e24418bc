// Package standings folds recorded match results into a ranked league table.
//
// Inputs are noisy (typed, photographed or transcribed guesses), so rows that
// do not parse are dropped from the aggregation instead of failing the call.
package standings

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidArgument is returned when the call itself is unusable, as opposed
// to individual rows being malformed.
var ErrInvalidArgument = errors.New("invalid argument")

// Row holds the standings info for one team.
type Row struct {
	Rank         int    `json:"rank"`
	Team         string `json:"team"`
	Points       int    `json:"P"`
	Played       int    `json:"J"`
	Wins         int    `json:"V"`
	Draws        int    `json:"E"`
	Losses       int    `json:"D"`
	GoalsFor     int    `json:"GP"`
	GoalsAgainst int    `json:"GC"`
	GoalDiff     int    `json:"SG"`
}

// Table is ranked: points desc, goal difference desc, name asc.
type Table []Row

// Summary counts what happened to each input row.
type Summary struct {
	Accepted    int `json:"accepted"`
	Malformed   int `json:"malformed"`
	AfterCutoff int `json:"after_cutoff"`
	UnknownTeam int `json:"unknown_team"`
}

// Discarded is the number of rows that contributed nothing to the table.
func (s Summary) Discarded() int {
	return s.Malformed + s.AfterCutoff + s.UnknownTeam
}

// ComputeTable builds the table for every team in roster using only results
// whose round is <= cutoff.
//
// Callers must pass the full roster: teams missing from it are never added on
// the fly, and results involving them are discarded.
func ComputeTable(roster []string, results []RawResult, cutoff int) (Table, error) {
	table, _, err := Compute(roster, results, cutoff)
	return table, err
}

// Compute is ComputeTable plus a per-row accounting of the input.
func Compute(roster []string, results []RawResult, cutoff int) (Table, Summary, error) {
	var summary Summary

	if cutoff < 0 {
		return nil, summary, fmt.Errorf("%w: round cutoff must not be negative, got %d", ErrInvalidArgument, cutoff)
	}

	entries := make(map[string]*Row, len(roster))
	for _, name := range roster {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := entries[name]; !ok {
			entries[name] = &Row{Team: name}
		}
	}
	if len(entries) == 0 {
		return nil, summary, fmt.Errorf("%w: roster is empty", ErrInvalidArgument)
	}

	for _, raw := range results {
		if raw.Round > cutoff {
			summary.AfterCutoff++
			continue
		}

		m, ok := ParseResult(raw)
		if !ok {
			summary.Malformed++
			continue
		}

		home, okHome := entries[m.HomeTeam]
		away, okAway := entries[m.AwayTeam]
		if !okHome || !okAway {
			summary.UnknownTeam++
			continue
		}

		apply(home, away, m.HomeGoals, m.AwayGoals)
		summary.Accepted++
	}

	table := make(Table, 0, len(entries))
	for _, e := range entries {
		table = append(table, *e)
	}

	sort.Slice(table, func(i, j int) bool {
		a, b := table[i], table[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.GoalDiff != b.GoalDiff {
			return a.GoalDiff > b.GoalDiff
		}
		return a.Team < b.Team
	})

	for i := range table {
		table[i].Rank = i + 1
	}

	return table, summary, nil
}

func apply(home, away *Row, homeGoals, awayGoals int) {
	home.Played++
	away.Played++

	home.GoalsFor += homeGoals
	home.GoalsAgainst += awayGoals
	away.GoalsFor += awayGoals
	away.GoalsAgainst += homeGoals

	home.GoalDiff = home.GoalsFor - home.GoalsAgainst
	away.GoalDiff = away.GoalsFor - away.GoalsAgainst

	switch {
	case homeGoals > awayGoals:
		home.Wins++
		home.Points += 3
		away.Losses++
	case awayGoals > homeGoals:
		away.Wins++
		away.Points += 3
		home.Losses++
	default:
		home.Draws++
		away.Draws++
		home.Points++
		away.Points++
	}
}

// Lookup returns the row for team.
func (t Table) Lookup(team string) (Row, bool) {
	for _, r := range t {
		if r.Team == team {
			return r, true
		}
	}
	return Row{}, false
}

// Position returns the 1-based rank of team, or 0 if it is not in the table.
func (t Table) Position(team string) int {
	if r, ok := t.Lookup(team); ok {
		return r.Rank
	}
	return 0
}

// At returns the row ranked at position (1-based).
func (t Table) At(position int) (Row, bool) {
	if position < 1 || position > len(t) {
		return Row{}, false
	}
	return t[position-1], true
}

// TotalPoints sums the points column.
func (t Table) TotalPoints() int {
	total := 0
	for _, r := range t {
		total += r.Points
	}
	return total
}
