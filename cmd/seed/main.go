// Bolão Guess Seeder
//
// Imports a user's guesses from a "round;match;score" sheet, e.g.
//
//	1;Flamengo x Vasco;2x1
//
// Runs once and exits. Each round is saved through the pool service, so
// labels are checked against the season fixtures like any other save.
package main

import (
	"context"
	"flag"
	"os"
	"sort"

	"bolao/palpites/internal/cache"
	"bolao/palpites/internal/config"
	"bolao/palpites/internal/fixtures"
	"bolao/palpites/internal/models"
	"bolao/palpites/internal/service"
	"bolao/palpites/internal/store"

	"go.uber.org/zap"
)

func main() {
	user := flag.String("user", "", "pool participant the guesses belong to")
	file := flag.String("file", "", "path to the guess sheet")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if *user == "" || *file == "" {
		logger.Fatal("Both -user and -file are required")
	}

	f, err := os.Open(*file)
	if err != nil {
		logger.Fatal("Failed to open sheet", zap.String("file", *file), zap.Error(err))
	}
	defer f.Close()

	lines, bad, err := readSheet(f)
	if err != nil {
		logger.Fatal("Failed to read sheet", zap.Error(err))
	}
	for _, b := range bad {
		logger.Warn("Skipping malformed line",
			zap.Int("line", b.Number),
			zap.String("text", b.Text),
			zap.String("reason", b.Reason),
		)
	}

	cfg := config.MustLoad()
	ctx := context.Background()

	teams := cfg.Teams
	if len(teams) == 0 {
		teams = fixtures.DefaultTeams
	}
	provider, err := fixtures.NewProvider(teams)
	if err != nil {
		logger.Fatal("Invalid team roster", zap.Error(err))
	}

	backend, err := store.Open(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer backend.Close()

	opts := service.Options{
		Users:    cfg.PoolUsers,
		Fixtures: provider,
		Guesses:  backend.Guesses,
		Results:  backend.Results,
		CacheTTL: cfg.StandingsTTL(),
	}

	redisCache, err := cache.NewFromConfig(cfg)
	if err != nil {
		logger.Warn("Failed to connect to Redis, cached tables expire by TTL only", zap.Error(err))
	} else {
		defer redisCache.Close()
		opts.Cache = redisCache
	}

	pool, err := service.New(opts)
	if err != nil {
		logger.Fatal("Failed to create pool service", zap.Error(err))
	}

	rounds := byRound(lines)
	order := make([]int, 0, len(rounds))
	for r := range rounds {
		order = append(order, r)
	}
	sort.Ints(order)

	saved, failed := 0, 0
	for _, round := range order {
		n, err := pool.SaveGuesses(ctx, *user, round, &models.GuessInput{
			Guesses: rounds[round],
			Source:  models.SourceImport,
		})
		if err != nil {
			logger.Error("Failed to save round",
				zap.String("user", *user),
				zap.Int("round", round),
				zap.Error(err),
			)
			failed++
			continue
		}
		saved += n
		logger.Info("Round imported",
			zap.String("user", *user),
			zap.Int("round", round),
			zap.Int("guesses", n),
		)
	}

	total, err := pool.GuessCount(ctx, *user)
	if err != nil {
		logger.Warn("Failed to count stored guesses", zap.Error(err))
	}

	logger.Info("Seed complete",
		zap.String("user", *user),
		zap.Int("saved", saved),
		zap.Int("stored_total", total),
		zap.Int("malformed_lines", len(bad)),
		zap.Int("failed_rounds", failed),
	)

	if failed > 0 {
		os.Exit(1)
	}
}
