package service

import (
	"context"
	"fmt"

	"bolao/palpites/internal/cache"
	"bolao/palpites/internal/metrics"
	"bolao/palpites/internal/models"
	"bolao/palpites/internal/standings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// UserTable is the table the user's guesses produce up to round cutoff
func (p *Pool) UserTable(ctx context.Context, user string, cutoff int) (standings.Table, error) {
	if err := p.checkUser(user); err != nil {
		return nil, err
	}
	if err := checkCutoff(cutoff); err != nil {
		return nil, err
	}

	return p.cachedTable(ctx, user, cutoff, func() ([]standings.RawResult, error) {
		return p.guesses.History(ctx, user, cutoff)
	})
}

// OfficialTable is the table of the real results up to round cutoff
func (p *Pool) OfficialTable(ctx context.Context, cutoff int) (standings.Table, error) {
	if err := checkCutoff(cutoff); err != nil {
		return nil, err
	}

	return p.cachedTable(ctx, officialOwner, cutoff, func() ([]standings.RawResult, error) {
		return p.results.History(ctx, cutoff)
	})
}

// Compare lines up the official table with every user's table at cutoff.
// Hits counts the positions where a user's team matches the official one.
func (p *Pool) Compare(ctx context.Context, cutoff int) (*models.Comparison, error) {
	if err := checkCutoff(cutoff); err != nil {
		return nil, err
	}

	var official standings.Table
	userTables := make([]standings.Table, len(p.users))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := p.OfficialTable(gctx, cutoff)
		if err != nil {
			return fmt.Errorf("official table: %w", err)
		}
		official = t
		return nil
	})
	for i, user := range p.users {
		g.Go(func() error {
			t, err := p.UserTable(gctx, user, cutoff)
			if err != nil {
				return fmt.Errorf("table of %s: %w", user, err)
			}
			userTables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cmp := &models.Comparison{
		Cutoff: cutoff,
		Users:  p.Users(),
		Rows:   make([]models.ComparisonRow, len(official)),
		Hits:   make(map[string]int, len(p.users)),
		Tables: make(map[string]standings.Table, len(p.users)+1),
	}
	cmp.Tables["official"] = official
	for i, user := range p.users {
		cmp.Tables[user] = userTables[i]
		cmp.Hits[user] = 0
	}

	for pos := 1; pos <= len(official); pos++ {
		row, _ := official.At(pos)
		cr := models.ComparisonRow{
			Position:       pos,
			Official:       row.Team,
			OfficialPoints: row.Points,
			Users:          make(map[string]string, len(p.users)),
		}
		for i, user := range p.users {
			ur, ok := userTables[i].At(pos)
			if !ok {
				continue
			}
			cr.Users[user] = ur.Team
			if ur.Team == row.Team {
				cmp.Hits[user]++
			}
		}
		cmp.Rows[pos-1] = cr
	}
	return cmp, nil
}

// cachedTable serves owner's table from the cache when one is configured,
// computing and storing it on a miss. Cache failures fall through to a
// fresh computation.
func (p *Pool) cachedTable(ctx context.Context, owner string, cutoff int, load func() ([]standings.RawResult, error)) (standings.Table, error) {
	key := cache.StandingsKey(owner, cutoff)
	if p.cache != nil {
		table, ok, err := p.cache.GetTable(ctx, key)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		} else if ok {
			return table, nil
		}
	}

	history, err := load()
	if err != nil {
		return nil, fmt.Errorf("failed to load results: %w", err)
	}

	kind := "user"
	if owner == officialOwner {
		kind = "official"
	}

	table, summary, err := standings.Compute(p.fixtures.Teams(), history, cutoff)
	if err != nil {
		return nil, err
	}
	metrics.RecordStandings(kind, summary.Malformed, summary.AfterCutoff, summary.UnknownTeam)

	if summary.Discarded() > 0 {
		log.Debug().
			Str("owner", owner).
			Int("cutoff", cutoff).
			Int("accepted", summary.Accepted).
			Int("malformed", summary.Malformed).
			Int("unknown_team", summary.UnknownTeam).
			Msg("Rows discarded while computing table")
	}

	if p.cache != nil {
		if err := p.cache.SetTable(ctx, key, table, p.cacheTTL); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
		}
	}
	return table, nil
}

// invalidate drops owner's cached tables; failures only leave stale entries
// until the TTL expires.
func (p *Pool) invalidate(ctx context.Context, owner string) {
	if p.cache == nil {
		return
	}
	if err := p.cache.InvalidateUser(ctx, owner); err != nil {
		log.Warn().Err(err).Str("owner", owner).Msg("Cache invalidation failed")
	}
}
