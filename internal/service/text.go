package service

import (
	"regexp"
	"strings"

	"bolao/palpites/internal/standings"
)

// guessLine matches the hand-typed form "Flamengo 2 x 0 Vasco"
var guessLine = regexp.MustCompile(`^(.+?)\s+(\d+)\s*[xX]\s*(\d+)\s+(.+)$`)

// TextParse is a draft read from typed guess lines
type TextParse struct {
	Guesses  map[string]string `json:"guesses"`
	Rejected []string          `json:"rejected"`
}

// ParseGuessText reads one "Home H x A Away" guess per line for round.
// Team names are matched to the round's fixtures ignoring case and extra
// spaces; lines that do not name a fixture are returned in Rejected. Blank
// lines are ignored. Nothing is saved.
func (p *Pool) ParseGuessText(user string, round int, text string) (*TextParse, error) {
	if err := p.checkUser(user); err != nil {
		return nil, err
	}
	labels, err := p.Matches(round)
	if err != nil {
		return nil, err
	}

	fixtures := make(map[string]string, len(labels))
	for _, l := range labels {
		fixtures[fold(l)] = l
	}

	parsed := &TextParse{Guesses: map[string]string{}, Rejected: []string{}}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		m := guessLine.FindStringSubmatch(line)
		if m == nil {
			parsed.Rejected = append(parsed.Rejected, line)
			continue
		}

		label, ok := fixtures[fold(m[1]+standings.MatchSeparator+m[4])]
		if !ok {
			parsed.Rejected = append(parsed.Rejected, line)
			continue
		}
		score, ok := standings.NormalizeScoreLabel(m[2] + standings.ScoreSeparator + m[3])
		if !ok {
			parsed.Rejected = append(parsed.Rejected, line)
			continue
		}
		parsed.Guesses[label] = score
	}

	return parsed, nil
}

func fold(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
