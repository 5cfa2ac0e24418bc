// Package fixtures generates the double round-robin schedule and serves the
// "Home x Away" match labels of each round.
package fixtures

import (
	"fmt"
	"strings"

	"bolao/palpites/internal/standings"
)

// DefaultTeams is the 2026 Série A field.
var DefaultTeams = []string{
	"Athletico-PR",
	"Atlético-MG",
	"Bahia",
	"Botafogo",
	"Bragantino",
	"Chapecoense",
	"Corinthians",
	"Coritiba",
	"Cruzeiro",
	"Flamengo",
	"Fluminense",
	"Grêmio",
	"Internacional",
	"Mirassol",
	"Palmeiras",
	"Remo",
	"Santos",
	"São Paulo",
	"Vasco",
	"Vitória",
}

// Fixture is one scheduled match.
type Fixture struct {
	Round int    `json:"round"`
	Home  string `json:"home"`
	Away  string `json:"away"`
}

// Label returns the match label used as the guess key.
func (f Fixture) Label() string {
	return standings.Match{Home: f.Home, Away: f.Away}.Label()
}

// GenerateSchedule returns a single round-robin for teams using the circle
// method. With an odd number of teams one team rests each round.
func GenerateSchedule(teams []string) [][]Fixture {
	slots := append([]string{}, teams...)
	if len(slots)%2 != 0 {
		slots = append(slots, "")
	}
	n := len(slots)
	if n < 2 {
		return nil
	}

	rounds := make([][]Fixture, n-1)
	for i := 0; i < n-1; i++ {
		round := make([]Fixture, 0, n/2)
		for j := 0; j < n/2; j++ {
			home, away := slots[j], slots[n-1-j]
			if home == "" || away == "" {
				continue
			}
			// The fixed slot would otherwise always play at home.
			if j == 0 && i%2 == 1 {
				home, away = away, home
			}
			round = append(round, Fixture{Round: i + 1, Home: home, Away: away})
		}
		rounds[i] = round

		// Rotate everyone except the first slot.
		last := slots[n-1]
		copy(slots[2:], slots[1:n-1])
		slots[1] = last
	}

	return rounds
}

// GenerateFullSeason plays the single round-robin twice, swapping home and
// away in the second half.
func GenerateFullSeason(teams []string) [][]Fixture {
	firstHalf := GenerateSchedule(teams)

	season := make([][]Fixture, 0, 2*len(firstHalf))
	season = append(season, firstHalf...)
	for i, rnd := range firstHalf {
		swapped := make([]Fixture, len(rnd))
		for j, f := range rnd {
			swapped[j] = Fixture{Round: len(firstHalf) + i + 1, Home: f.Away, Away: f.Home}
		}
		season = append(season, swapped)
	}
	return season
}

// Provider serves fixtures for a fixed roster. It is read-only after
// construction and safe for concurrent use.
type Provider struct {
	teams  []string
	rounds [][]Fixture
}

// NewProvider builds the full season for teams.
func NewProvider(teams []string) (*Provider, error) {
	if len(teams) < 2 {
		return nil, fmt.Errorf("at least two teams are required, got %d", len(teams))
	}

	seen := make(map[string]bool, len(teams))
	clean := make([]string, 0, len(teams))
	for _, t := range teams {
		t = strings.TrimSpace(t)
		if t == "" {
			return nil, fmt.Errorf("team names must not be empty")
		}
		if strings.Contains(t, standings.MatchSeparator) {
			return nil, fmt.Errorf("team name %q contains the match separator", t)
		}
		if seen[t] {
			return nil, fmt.Errorf("duplicate team %q", t)
		}
		seen[t] = true
		clean = append(clean, t)
	}

	return &Provider{
		teams:  clean,
		rounds: GenerateFullSeason(clean),
	}, nil
}

// Teams returns a copy of the roster.
func (p *Provider) Teams() []string {
	return append([]string{}, p.teams...)
}

// Rounds returns the number of rounds in the season.
func (p *Provider) Rounds() int {
	return len(p.rounds)
}

// Fixtures returns a copy of the fixtures of round (1-based).
func (p *Provider) Fixtures(round int) ([]Fixture, error) {
	if round < 1 || round > len(p.rounds) {
		return nil, fmt.Errorf("round %d out of range 1..%d", round, len(p.rounds))
	}
	return append([]Fixture{}, p.rounds[round-1]...), nil
}

// MatchesFor returns the ordered match labels of round.
func (p *Provider) MatchesFor(round int) ([]string, error) {
	fixtures, err := p.Fixtures(round)
	if err != nil {
		return nil, err
	}

	labels := make([]string, len(fixtures))
	for i, f := range fixtures {
		labels[i] = f.Label()
	}
	return labels, nil
}
