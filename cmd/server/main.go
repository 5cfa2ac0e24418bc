package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bolao/palpites/internal/api"
	"bolao/palpites/internal/cache"
	"bolao/palpites/internal/client"
	"bolao/palpites/internal/config"
	"bolao/palpites/internal/fixtures"
	"bolao/palpites/internal/metrics"
	"bolao/palpites/internal/scheduler"
	"bolao/palpites/internal/service"
	"bolao/palpites/internal/store"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Setup logger
	setupLogger()

	log.Info().Msg("Starting Bolão Brasileirão server")

	// Load configuration
	cfg := config.MustLoad()
	log.Info().
		Str("env", cfg.AppEnv).
		Str("log_level", cfg.LogLevel).
		Str("store", cfg.StoreDriver).
		Strs("users", cfg.PoolUsers).
		Msg("Configuration loaded")

	// Create context that listens for cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	teams := cfg.Teams
	if len(teams) == 0 {
		teams = fixtures.DefaultTeams
	}
	provider, err := fixtures.NewProvider(teams)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid team roster")
	}
	log.Info().
		Int("teams", len(provider.Teams())).
		Int("rounds", provider.Rounds()).
		Msg("Season schedule generated")

	// Initialize storage
	backend, err := store.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer backend.Close()
	log.Info().Str("driver", backend.Driver).Msg("Storage ready")

	opts := service.Options{
		Users:    cfg.PoolUsers,
		Fixtures: provider,
		Guesses:  backend.Guesses,
		Results:  backend.Results,
		Source:   client.NewResultsClient(cfg.ResultsSourceURL, cfg.ResultsSourceTimeout),
		CacheTTL: cfg.StandingsTTL(),
	}

	if cfg.GeminiAPIKey != "" {
		vision, err := client.NewGeminiClient(ctx, cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTimeout)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Gemini client")
		}
		opts.Vision = vision
		log.Info().Str("model", cfg.GeminiModel).Msg("Gemini vision client initialized")
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set - photo extraction disabled")
	}

	// Initialize Redis client
	redisCache, err := cache.NewFromConfig(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without cache")
	} else {
		defer redisCache.Close()
		opts.Cache = redisCache
		log.Info().Msg("Redis cache connected")
	}

	pool, err := service.New(opts)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create pool service")
	}

	// Start metrics HTTP server
	if cfg.EnableMetrics {
		go startMetricsServer(cfg.MetricsPort)
	}

	// Update system uptime metric
	startTime := time.Now()
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.SystemUptime.Set(time.Since(startTime).Seconds())
				if err := backend.Health(ctx); err != nil {
					log.Warn().Err(err).Msg("Storage health check failed")
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// Create and start scheduler
	sched := scheduler.NewScheduler(cfg.ResultsSyncCron, pool)
	if cfg.EnableScheduler {
		log.Info().Msg("Starting scheduler...")
		if err := sched.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
		defer sched.Stop()
	}

	handler := api.NewHandler(pool, backend.Health, cfg.UploadMaxBytes)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
			cancel()
		}
	}()

	// Keep running until context is cancelled
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	log.Info().Msg("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server shutdown complete")
}

// setupLogger configures the zerolog logger
func setupLogger() {
	// Pretty console logging in development
	if os.Getenv("APP_ENV") == "development" || os.Getenv("APP_ENV") == "" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	// Set log level
	level := zerolog.InfoLevel
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsedLevel, err := zerolog.ParseLevel(lvl)
		if err == nil {
			level = parsedLevel
		}
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("level", level.String()).
		Msg("Logger initialized")
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	addr := fmt.Sprintf(":%d", port)
	log.Info().Int("port", port).Msg("Starting metrics server")

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}
