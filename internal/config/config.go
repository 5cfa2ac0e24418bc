package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"bolao/palpites/internal/models"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPPort int    `envconfig:"HTTP_PORT" default:"8080"`

	// Pool
	PoolUsers      []string `envconfig:"POOL_USERS" default:"Maicon,Fabinho"`
	Teams          []string `envconfig:"TEAMS"`
	UploadMaxBytes int64    `envconfig:"UPLOAD_MAX_BYTES" default:"10485760"` // 10 MiB

	// Storage
	StoreDriver string `envconfig:"STORE_DRIVER" default:"postgres"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"bolao.db"`

	// Database
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"bolao"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"bolao_user"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD"`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`

	// Redis
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Caching TTL (in seconds)
	CacheTTLStandings int `envconfig:"CACHE_TTL_STANDINGS" default:"600"` // 10 minutes

	// Gemini vision
	GeminiAPIKey  string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel   string        `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	GeminiBaseURL string        `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com"`
	GeminiTimeout time.Duration `envconfig:"GEMINI_TIMEOUT" default:"60s"`

	// Official results
	ResultsSourceURL     string        `envconfig:"RESULTS_SOURCE_URL" default:"https://www.cbf.com.br/futebol-brasileiro/tabelas/campeonato-brasileiro/serie-a/2026?rodada={round}"`
	ResultsSourceTimeout time.Duration `envconfig:"RESULTS_SOURCE_TIMEOUT" default:"30s"`

	// Scheduler
	EnableScheduler bool   `envconfig:"ENABLE_SCHEDULER" default:"true"`
	ResultsSyncCron string `envconfig:"RESULTS_SYNC_CRON" default:"0 6 * * *"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if in development mode
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	cfg.PoolUsers = trimAll(cfg.PoolUsers)
	cfg.Teams = trimAll(cfg.Teams)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "postgres":
		if c.DatabasePassword == "" {
			return fmt.Errorf("DATABASE_PASSWORD is required for the postgres store")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if len(c.PoolUsers) == 0 {
		return fmt.Errorf("POOL_USERS must name at least one user")
	}
	for _, u := range c.PoolUsers {
		if err := models.ValidateUserName(u); err != nil {
			return fmt.Errorf("invalid POOL_USERS: %w", err)
		}
	}

	if c.IsProduction() && c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required in production")
	}

	if c.UploadMaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}

	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DatabaseHost,
		c.DatabasePort,
		c.DatabaseUser,
		c.DatabasePassword,
		c.DatabaseName,
		c.DatabaseSSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// StandingsTTL returns the standings cache TTL
func (c *Config) StandingsTTL() time.Duration {
	return time.Duration(c.CacheTTLStandings) * time.Second
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MustLoad loads configuration or panics on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func trimAll(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
