package standings

import (
	"strconv"
	"strings"
)

const (
	// MatchSeparator splits a match label into home and away team names.
	MatchSeparator = " x "
	// ScoreSeparator splits a score label into home and away goals.
	ScoreSeparator = "x"
)

// RawResult is a guess or official result as stored, before validation.
type RawResult struct {
	Round      int    `json:"round"`
	MatchLabel string `json:"match_label"`
	ScoreLabel string `json:"score_label"`
}

// Match is a parsed "Home x Away" label.
type Match struct {
	Home string
	Away string
}

// Label renders the match back to its canonical label.
func (m Match) Label() string {
	return m.Home + MatchSeparator + m.Away
}

// Score is a parsed "<int>x<int>" label.
type Score struct {
	Home int
	Away int
}

// Label renders the score in its canonical compact form, e.g. "2x1".
func (s Score) Label() string {
	return strconv.Itoa(s.Home) + ScoreSeparator + strconv.Itoa(s.Away)
}

// MatchResult is a RawResult that passed parsing.
type MatchResult struct {
	Round     int
	HomeTeam  string
	AwayTeam  string
	HomeGoals int
	AwayGoals int
}

// ParseMatchLabel parses `<team> " x " <team>`. Both names must be non-empty
// and distinct, and the separator must occur exactly once.
func ParseMatchLabel(label string) (Match, bool) {
	parts := strings.Split(label, MatchSeparator)
	if len(parts) != 2 {
		return Match{}, false
	}

	home := strings.TrimSpace(parts[0])
	away := strings.TrimSpace(parts[1])
	if home == "" || away == "" || home == away {
		return Match{}, false
	}

	return Match{Home: home, Away: away}, true
}

// ParseScoreLabel parses `<int> "x" <int>`. Whitespace around either token
// is ignored; signs and other characters are not.
func ParseScoreLabel(label string) (Score, bool) {
	parts := strings.Split(label, ScoreSeparator)
	if len(parts) != 2 {
		return Score{}, false
	}

	home, ok := parseGoals(parts[0])
	if !ok {
		return Score{}, false
	}
	away, ok := parseGoals(parts[1])
	if !ok {
		return Score{}, false
	}

	return Score{Home: home, Away: away}, true
}

// NormalizeScoreLabel accepts the looser forms people write by hand
// ("2 X 1", " 0x0 ") and returns the canonical label.
func NormalizeScoreLabel(label string) (string, bool) {
	score, ok := ParseScoreLabel(strings.ToLower(strings.TrimSpace(label)))
	if !ok {
		return "", false
	}
	return score.Label(), true
}

// ParseResult validates both labels of a raw result.
func ParseResult(raw RawResult) (MatchResult, bool) {
	match, ok := ParseMatchLabel(raw.MatchLabel)
	if !ok {
		return MatchResult{}, false
	}
	score, ok := ParseScoreLabel(raw.ScoreLabel)
	if !ok {
		return MatchResult{}, false
	}

	return MatchResult{
		Round:     raw.Round,
		HomeTeam:  match.Home,
		AwayTeam:  match.Away,
		HomeGoals: score.Home,
		AwayGoals: score.Away,
	}, true
}

func parseGoals(token string) (int, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, false
	}
	for i := 0; i < len(token); i++ {
		if token[i] < '0' || token[i] > '9' {
			return 0, false
		}
	}

	n, err := strconv.Atoi(token)
	if err != nil {
		return 0, false
	}
	return n, true
}
