// Package service ties the fixture schedule, the stores and the external
// clients together into the operations the pool's users perform.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bolao/palpites/internal/fixtures"
	"bolao/palpites/internal/models"
	"bolao/palpites/internal/standings"
)

var (
	ErrUnknownUser     = errors.New("unknown user")
	ErrRoundOutOfRange = errors.New("round out of range")
	ErrUnknownMatch    = errors.New("match not in round")
	ErrInvalidScore    = errors.New("invalid score")
	ErrNoResultsSource = errors.New("no results source configured")
)

// officialOwner keys the official table in the cache. ValidateUserName
// rejects '@', so no user can collide with it.
const officialOwner = "@official"

// GuessStore persists users' guesses
type GuessStore interface {
	SaveRound(ctx context.Context, guesses []*models.Guess) error
	Load(ctx context.Context, user string, round int) (map[string]string, error)
	History(ctx context.Context, user string, cutoff int) ([]standings.RawResult, error)
	Count(ctx context.Context, user string) (int, error)
}

// ResultStore persists official results
type ResultStore interface {
	Upsert(ctx context.Context, results []*models.OfficialResult) error
	History(ctx context.Context, cutoff int) ([]standings.RawResult, error)
	LatestRound(ctx context.Context) (int, error)
}

// VisionExtractor reads guesses from a photo of a guess sheet
type VisionExtractor interface {
	Extract(ctx context.Context, image []byte, mimeType string, expected []string) (map[string]string, error)
}

// ResultsSource fetches official results of a round
type ResultsSource interface {
	FetchRound(ctx context.Context, round int) ([]*models.OfficialResult, error)
}

// TableCache stores computed tables
type TableCache interface {
	GetTable(ctx context.Context, key string) (standings.Table, bool, error)
	SetTable(ctx context.Context, key string, table standings.Table, ttl time.Duration) error
	InvalidateUser(ctx context.Context, user string) error
}

// Options configures a Pool. Vision, Source and Cache are optional.
type Options struct {
	Users    []string
	Fixtures *fixtures.Provider
	Guesses  GuessStore
	Results  ResultStore
	Vision   VisionExtractor
	Source   ResultsSource
	Cache    TableCache
	CacheTTL time.Duration
}

// Pool is the prediction pool: a fixed set of users guessing every round of
// one season.
type Pool struct {
	users    []string
	userSet  map[string]bool
	fixtures *fixtures.Provider
	guesses  GuessStore
	results  ResultStore
	vision   VisionExtractor
	source   ResultsSource
	cache    TableCache
	cacheTTL time.Duration
}

// New creates a Pool
func New(opts Options) (*Pool, error) {
	if opts.Fixtures == nil {
		return nil, fmt.Errorf("fixtures provider is required")
	}
	if opts.Guesses == nil || opts.Results == nil {
		return nil, fmt.Errorf("guess and result stores are required")
	}
	if len(opts.Users) == 0 {
		return nil, fmt.Errorf("at least one user is required")
	}

	p := &Pool{
		userSet:  make(map[string]bool, len(opts.Users)),
		fixtures: opts.Fixtures,
		guesses:  opts.Guesses,
		results:  opts.Results,
		vision:   opts.Vision,
		source:   opts.Source,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
	}
	for _, u := range opts.Users {
		if err := models.ValidateUserName(u); err != nil {
			return nil, err
		}
		if p.userSet[u] {
			continue
		}
		p.userSet[u] = true
		p.users = append(p.users, u)
	}
	if p.cacheTTL <= 0 {
		p.cacheTTL = 10 * time.Minute
	}
	return p, nil
}

// Users returns the pool's users in configured order
func (p *Pool) Users() []string {
	return append([]string{}, p.users...)
}

// Rounds returns the number of rounds in the season
func (p *Pool) Rounds() int {
	return p.fixtures.Rounds()
}

// Teams returns the league roster
func (p *Pool) Teams() []string {
	return p.fixtures.Teams()
}

// Matches returns the ordered match labels of round
func (p *Pool) Matches(round int) ([]string, error) {
	labels, err := p.fixtures.MatchesFor(round)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRoundOutOfRange, err)
	}
	return labels, nil
}

func (p *Pool) checkUser(user string) error {
	if !p.userSet[user] {
		return fmt.Errorf("%w: %q", ErrUnknownUser, user)
	}
	return nil
}

func checkCutoff(cutoff int) error {
	if cutoff < 0 {
		return fmt.Errorf("%w: cutoff %d is negative", standings.ErrInvalidArgument, cutoff)
	}
	return nil
}
