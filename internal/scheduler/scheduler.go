package scheduler

import (
	"context"
	"fmt"
	"time"

	"bolao/palpites/internal/metrics"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Syncer brings the stored official results up to date
type Syncer interface {
	SyncPending(ctx context.Context) (int, error)
}

// Scheduler runs the official results sync on a cron schedule
type Scheduler struct {
	spec    string
	syncer  Syncer
	timeout time.Duration
	cron    *cron.Cron
}

// NewScheduler creates a new scheduler instance
func NewScheduler(spec string, syncer Syncer) *Scheduler {
	return &Scheduler{
		spec:    spec,
		syncer:  syncer,
		timeout: 5 * time.Minute,
		// A slow sync must not overlap the next tick
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
	}
}

// Start schedules the sync job and starts the cron runner
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	if _, err := s.cron.AddFunc(s.spec, func() {
		log.Info().Msg("Running scheduled results sync...")
		s.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule results sync: %w", err)
	}

	s.cron.Start()
	log.Info().
		Str("schedule", s.spec).
		Msg("Results sync scheduled")

	return nil
}

// RunOnce syncs pending rounds, logging instead of returning failures
func (s *Scheduler) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	stored, err := s.syncer.SyncPending(ctx)
	if err != nil {
		metrics.RecordError("scheduler", "results_sync")
		log.Error().Err(err).Msg("Scheduled results sync failed")
		return
	}

	log.Info().
		Int("stored", stored).
		Dur("duration", time.Since(start)).
		Msg("Scheduled results sync complete")
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")
	<-s.cron.Stop().Done()
	log.Info().Msg("Scheduler stopped")
}
