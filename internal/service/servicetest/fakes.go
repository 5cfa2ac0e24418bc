// Package servicetest provides in-memory collaborators for exercising the
// pool service without Postgres, Redis or network access.
package servicetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"bolao/palpites/internal/models"
	"bolao/palpites/internal/standings"
)

type guessKey struct {
	user  string
	round int
	match string
}

// GuessStore keeps guesses in memory
type GuessStore struct {
	mu      sync.Mutex
	guesses map[guessKey]string
	Err     error
}

// NewGuessStore returns an empty store
func NewGuessStore() *GuessStore {
	return &GuessStore{guesses: make(map[guessKey]string)}
}

func (s *GuessStore) SaveRound(ctx context.Context, guesses []*models.Guess) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for _, g := range guesses {
		s.guesses[guessKey{g.UserName, g.Round, g.MatchLabel}] = g.ScoreLabel
	}
	return nil
}

func (s *GuessStore) Load(ctx context.Context, user string, round int) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make(map[string]string)
	for k, v := range s.guesses {
		if k.user == user && k.round == round {
			out[k.match] = v
		}
	}
	return out, nil
}

func (s *GuessStore) History(ctx context.Context, user string, cutoff int) ([]standings.RawResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []standings.RawResult
	for k, v := range s.guesses {
		if k.user == user && k.round <= cutoff {
			out = append(out, standings.RawResult{Round: k.round, MatchLabel: k.match, ScoreLabel: v})
		}
	}
	sortRaw(out)
	return out, nil
}

func (s *GuessStore) Count(ctx context.Context, user string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	n := 0
	for k := range s.guesses {
		if k.user == user {
			n++
		}
	}
	return n, nil
}

// ResultStore keeps official results in memory
type ResultStore struct {
	mu      sync.Mutex
	results map[guessKey]*models.OfficialResult
	Err     error
}

// NewResultStore returns an empty store
func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[guessKey]*models.OfficialResult)}
}

func (s *ResultStore) Upsert(ctx context.Context, results []*models.OfficialResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for _, r := range results {
		cp := *r
		s.results[guessKey{"", r.Round, r.MatchLabel()}] = &cp
	}
	return nil
}

func (s *ResultStore) History(ctx context.Context, cutoff int) ([]standings.RawResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []standings.RawResult
	for _, r := range s.results {
		if r.Round <= cutoff {
			out = append(out, r.ToRawResult())
		}
	}
	sortRaw(out)
	return out, nil
}

func (s *ResultStore) LatestRound(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	latest := 0
	for _, r := range s.results {
		if r.Round > latest {
			latest = r.Round
		}
	}
	return latest, nil
}

// Extractor returns a canned answer
type Extractor struct {
	Guesses map[string]string
	Err     error

	mu       sync.Mutex
	Expected []string
	MimeType string
	Deadline time.Time
}

func (e *Extractor) Extract(ctx context.Context, image []byte, mimeType string, expected []string) (map[string]string, error) {
	e.mu.Lock()
	e.Expected = expected
	e.MimeType = mimeType
	e.Deadline, _ = ctx.Deadline()
	e.mu.Unlock()
	if e.Err != nil {
		return nil, e.Err
	}
	return e.Guesses, nil
}

// Source serves canned official results per round
type Source struct {
	Rounds map[int][]*models.OfficialResult
	Err    error

	mu       sync.Mutex
	Fetched  []int
	Deadline time.Time
}

func (s *Source) FetchRound(ctx context.Context, round int) ([]*models.OfficialResult, error) {
	s.mu.Lock()
	s.Fetched = append(s.Fetched, round)
	s.Deadline, _ = ctx.Deadline()
	s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []*models.OfficialResult
	for _, r := range s.Rounds[round] {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

// Cache is an in-memory table cache
type Cache struct {
	mu     sync.Mutex
	tables map[string]standings.Table
	Hits   int
	Sets   int
}

// NewCache returns an empty cache
func NewCache() *Cache {
	return &Cache{tables: make(map[string]standings.Table)}
}

func (c *Cache) GetTable(ctx context.Context, key string) (standings.Table, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[key]
	if ok {
		c.Hits++
	}
	return t, ok, nil
}

func (c *Cache) SetTable(ctx context.Context, key string, table standings.Table, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[key] = table
	c.Sets++
	return nil
}

func (c *Cache) InvalidateUser(ctx context.Context, user string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.tables {
		if strings.Contains(k, ":"+user+":") {
			delete(c.tables, k)
		}
	}
	return nil
}

// Len returns the number of cached tables
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tables)
}

func sortRaw(rows []standings.RawResult) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Round != rows[j].Round {
			return rows[i].Round < rows[j].Round
		}
		return rows[i].MatchLabel < rows[j].MatchLabel
	})
}
