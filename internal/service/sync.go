package service

import (
	"context"
	"fmt"
	"time"

	"bolao/palpites/internal/metrics"
	"bolao/palpites/internal/models"

	"github.com/rs/zerolog/log"
)

// SyncOfficialResults fetches the played matches of round from the results
// source and stores them. Returns the number of results stored.
func (p *Pool) SyncOfficialResults(ctx context.Context, round int) (int, error) {
	if p.source == nil {
		return 0, ErrNoResultsSource
	}
	if round < 1 || round > p.Rounds() {
		return 0, fmt.Errorf("%w: %d", ErrRoundOutOfRange, round)
	}

	start := time.Now()
	fetched, err := p.source.FetchRound(ctx, round)
	if err != nil {
		metrics.RecordSync("round", "error", time.Since(start).Seconds())
		return 0, fmt.Errorf("failed to fetch round %d: %w", round, err)
	}

	teams := make(map[string]bool)
	for _, t := range p.Teams() {
		teams[t] = true
	}

	valid := make([]*models.OfficialResult, 0, len(fetched))
	for _, res := range fetched {
		res.Round = round
		if err := res.Validate(); err != nil {
			log.Warn().Err(err).Int("round", round).Str("match", res.MatchLabel()).Msg("Skipping invalid result")
			continue
		}
		if !teams[res.HomeTeam] || !teams[res.AwayTeam] {
			// Stored anyway; the table calculation ignores it
			log.Warn().Int("round", round).Str("match", res.MatchLabel()).Msg("Result names a team outside the roster")
		}
		valid = append(valid, res)
	}

	if err := p.results.Upsert(ctx, valid); err != nil {
		metrics.RecordSync("round", "error", time.Since(start).Seconds())
		return 0, fmt.Errorf("failed to store round %d: %w", round, err)
	}

	p.invalidate(ctx, officialOwner)
	metrics.RecordSync("round", "success", time.Since(start).Seconds())

	log.Info().
		Int("round", round).
		Int("stored", len(valid)).
		Dur("duration", time.Since(start)).
		Msg("Official results synced")

	return len(valid), nil
}

// SyncPending re-syncs the latest stored round, which may have been only
// partly played, then moves forward until a round has no played matches.
func (p *Pool) SyncPending(ctx context.Context) (int, error) {
	latest, err := p.results.LatestRound(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest round: %w", err)
	}

	start := time.Now()
	round := latest
	if round < 1 {
		round = 1
	}

	total := 0
	for ; round <= p.Rounds(); round++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := p.SyncOfficialResults(ctx, round)
		if err != nil {
			metrics.RecordSync("pending", "error", time.Since(start).Seconds())
			return total, err
		}
		total += n
		if n == 0 {
			break
		}
	}

	metrics.RecordSync("pending", "success", time.Since(start).Seconds())
	return total, nil
}
