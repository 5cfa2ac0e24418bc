// Package store opens the configured storage backend.
package store

import (
	"context"
	"fmt"
	"strconv"

	"bolao/palpites/internal/config"
	"bolao/palpites/internal/repository"
	"bolao/palpites/internal/repository/sqlitestore"
	"bolao/palpites/internal/service"

	"github.com/rs/zerolog/log"
)

// Backend is a migrated storage backend
type Backend struct {
	Driver  string
	Guesses service.GuessStore
	Results service.ResultStore

	health func(ctx context.Context) error
	close  func()
}

// Health checks the backend connection
func (b *Backend) Health(ctx context.Context) error {
	return b.health(ctx)
}

// Close releases the backend's connections
func (b *Backend) Close() {
	b.close()
}

// Open connects to the backend selected by STORE_DRIVER and applies the schema
func Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	switch cfg.StoreDriver {
	case "postgres":
		db, err := repository.NewDatabase(ctx, repository.Config{
			Host:     cfg.DatabaseHost,
			Port:     strconv.Itoa(cfg.DatabasePort),
			User:     cfg.DatabaseUser,
			Password: cfg.DatabasePassword,
			Database: cfg.DatabaseName,
			SSLMode:  cfg.DatabaseSSLMode,
		})
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return &Backend{
			Driver:  cfg.StoreDriver,
			Guesses: db.Guesses,
			Results: db.Results,
			health:  db.Health,
			close:   db.Close,
		}, nil

	case "sqlite":
		db, err := sqlitestore.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return &Backend{
			Driver:  cfg.StoreDriver,
			Guesses: db.Guesses,
			Results: db.Results,
			health:  db.Health,
			close: func() {
				if err := db.Close(); err != nil {
					log.Warn().Err(err).Msg("Failed to close sqlite database")
				}
			},
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
