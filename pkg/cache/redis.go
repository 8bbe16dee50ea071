package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cyclo/millplan/internal/model"
)

// RedisConfig configures the Redis plan store.
type RedisConfig struct {
	// Address is the Redis server address (e.g., "localhost:6379")
	Address string

	// Password for Redis authentication (optional)
	Password string

	// Database number to use (default: 0)
	Database int

	// Prefix is prepended to all plan keys
	Prefix string

	// TTL is the time-to-live for plan keys (0 = no expiration)
	TTL time.Duration

	// Timeout for Redis operations
	Timeout time.Duration

	PoolSize     int
	MinIdleConns int

	// Recent bounds the list of most recently stored fingerprints.
	Recent int64
}

// DefaultRedisConfig returns sensible defaults.
func DefaultRedisConfig(address string) RedisConfig {
	return RedisConfig{
		Address:      address,
		Prefix:       "millplan:plans:",
		TTL:          24 * time.Hour,
		Timeout:      5 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
		Recent:       100,
	}
}

// Redis shares plans between planner processes.
type Redis struct {
	cfg    RedisConfig
	client *redis.Client
	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.Database,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Redis{cfg: cfg, client: client}, nil
}

func (r *Redis) key(fingerprint string) string {
	return r.cfg.Prefix + sanitizeKey(fingerprint)
}

func (r *Redis) recentKey() string {
	return r.cfg.Prefix + "recent"
}

// sanitizeKey removes characters that may cause issues in Redis keys.
func sanitizeKey(s string) string {
	return strings.NewReplacer("/", "_", ":", "_", " ", "_").Replace(s)
}

// Get loads a plan. A missing key is a miss, not an error.
func (r *Redis) Get(ctx context.Context, key string) (*model.Plan, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.misses.Add(1)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to load plan from Redis: %w", err)
	}

	var plan model.Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal plan: %w", err)
	}
	r.hits.Add(1)
	return &plan, true, nil
}

// Put stores a plan and records its fingerprint in the recent list.
func (r *Redis) Put(ctx context.Context, key string, plan *model.Plan) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	data, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, r.key(key), data, r.cfg.TTL)
	if r.cfg.Recent > 0 {
		pipe.LPush(ctx, r.recentKey(), key)
		pipe.LTrim(ctx, r.recentKey(), 0, r.cfg.Recent-1)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save plan to Redis: %w", err)
	}
	return nil
}

// Recent lists the most recently stored fingerprints, newest first.
func (r *Redis) Recent(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()
	return r.client.LRange(ctx, r.recentKey(), 0, -1).Result()
}

// Stats returns hit/miss counters for this process.
func (r *Redis) Stats() Stats {
	hits, misses := r.hits.Load(), r.misses.Load()
	return Stats{
		Backend: "redis",
		Entries: -1,
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate(hits, misses),
	}
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
