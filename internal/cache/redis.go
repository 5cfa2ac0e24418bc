package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bolao/palpites/internal/config"
	"bolao/palpites/internal/metrics"
	"bolao/palpites/internal/standings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const keyPrefix = "bolao:standings"

// Config holds Redis connection settings
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// RedisCache stores computed standings tables
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(cfg Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// NewFromConfig connects to the Redis instance named by the app config
func NewFromConfig(cfg *config.Config) (*RedisCache, error) {
	return NewRedisCache(Config{
		Host:     cfg.RedisHost,
		Port:     strconv.Itoa(cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// StandingsKey returns the cache key of a user's table at cutoff
func StandingsKey(user string, cutoff int) string {
	return fmt.Sprintf("%s:%s:%d", keyPrefix, user, cutoff)
}

// GetTable returns the cached table, with ok=false on a miss
func (c *RedisCache) GetTable(ctx context.Context, key string) (standings.Table, bool, error) {
	start := time.Now()
	defer func() { metrics.RecordCacheOperation("get", time.Since(start).Seconds()) }()

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheMiss()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}

	var table standings.Table
	if err := json.Unmarshal(data, &table); err != nil {
		// Corrupt entry; treat as a miss so it gets recomputed
		log.Warn().Err(err).Str("key", key).Msg("Discarding unreadable cache entry")
		metrics.RecordCacheMiss()
		return nil, false, nil
	}

	metrics.RecordCacheHit()
	return table, true, nil
}

// SetTable stores table under key for ttl
func (c *RedisCache) SetTable(ctx context.Context, key string, table standings.Table, ttl time.Duration) error {
	start := time.Now()
	defer func() { metrics.RecordCacheOperation("set", time.Since(start).Seconds()) }()

	data, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("failed to encode table: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// InvalidateUser drops every cached table of user
func (c *RedisCache) InvalidateUser(ctx context.Context, user string) error {
	return c.invalidate(ctx, userPattern(user))
}

// userPattern is the SCAN pattern matching every key of user
func userPattern(user string) string {
	return fmt.Sprintf("%s:%s:*", keyPrefix, globEscaper.Replace(user))
}

var globEscaper = strings.NewReplacer(
	`\`, `\`,
	`*`, `\*`,
	`?`, `\?`,
	`[`, `\[`,
	`]`, `\]`,
)

func (c *RedisCache) invalidate(ctx context.Context, pattern string) error {
	start := time.Now()
	defer func() { metrics.RecordCacheOperation("invalidate", time.Since(start).Seconds()) }()

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete keys: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Close closes the Redis client
func (c *RedisCache) Close() error {
	return c.client.Close()
}
