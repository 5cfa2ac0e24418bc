// Command syncresults fetches official round results once and stores them.
// With -round it syncs that round; otherwise it resumes from the latest
// stored round until it reaches one without played matches.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bolao/palpites/internal/cache"
	"bolao/palpites/internal/client"
	"bolao/palpites/internal/config"
	"bolao/palpites/internal/fixtures"
	"bolao/palpites/internal/service"
	"bolao/palpites/internal/store"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	round := flag.Int("round", 0, "round to sync (0 syncs pending rounds)")
	all := flag.Bool("all", false, "sync every round of the season")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg := config.MustLoad()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	teams := cfg.Teams
	if len(teams) == 0 {
		teams = fixtures.DefaultTeams
	}
	provider, err := fixtures.NewProvider(teams)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid team roster")
	}

	backend, err := store.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer backend.Close()

	// 1. Validate storage connectivity
	if err := backend.Health(ctx); err != nil {
		log.Fatal().Err(err).Msg("Storage health check failed")
	}

	opts := service.Options{
		Users:    cfg.PoolUsers,
		Fixtures: provider,
		Guesses:  backend.Guesses,
		Results:  backend.Results,
		Source:   client.NewResultsClient(cfg.ResultsSourceURL, cfg.ResultsSourceTimeout),
		CacheTTL: cfg.StandingsTTL(),
	}

	// The server's cached official tables are dropped after each stored round
	redisCache, err := cache.NewFromConfig(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to connect to Redis - cached tables expire by TTL only")
	} else {
		defer redisCache.Close()
		opts.Cache = redisCache
	}

	pool, err := service.New(opts)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create pool service")
	}

	// 2. Sync
	start := time.Now()
	stored := 0
	failures := 0

	switch {
	case *all:
		for r := 1; r <= pool.Rounds(); r++ {
			n, err := pool.SyncOfficialResults(ctx, r)
			if err != nil {
				log.Error().Err(err).Int("round", r).Msg("Round sync failed. Continuing.")
				failures++
				continue
			}
			stored += n
		}
	case *round > 0:
		stored, err = pool.SyncOfficialResults(ctx, *round)
		if err != nil {
			log.Fatal().Err(err).Int("round", *round).Msg("Round sync failed")
		}
	default:
		stored, err = pool.SyncPending(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Pending sync failed")
		}
	}

	log.Info().
		Int("stored", stored).
		Int("failures", failures).
		Dur("duration", time.Since(start)).
		Msg("Official results sync complete")

	if failures > 0 {
		os.Exit(1)
	}
}
