// Package cache memoizes finished plans by input fingerprint.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cyclo/millplan/internal/model"
	"github.com/cyclo/millplan/pkg/config"
)

// Store caches plans. Returned plans are shared and must be treated as
// read-only.
type Store interface {
	Get(ctx context.Context, key string) (*model.Plan, bool, error)
	Put(ctx context.Context, key string, plan *model.Plan) error
	Stats() Stats
	Close() error
}

// Stats contains cache statistics.
type Stats struct {
	Backend string
	Entries int
	Hits    int64
	Misses  int64
	HitRate float64
}

// New builds the store selected by cfg.Backend: "memory", "redis" or
// "none".
func New(cfg config.CacheConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemory(cfg.MaxEntries, cfg.TTL), nil
	case "redis":
		rc := DefaultRedisConfig(cfg.RedisAddress)
		rc.Password = cfg.RedisPassword
		rc.Database = cfg.RedisDB
		if cfg.RedisPrefix != "" {
			rc.Prefix = cfg.RedisPrefix
		}
		if cfg.TTL > 0 {
			rc.TTL = cfg.TTL
		}
		return NewRedis(rc)
	case "none", "off":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// Memory is an in-process store with a size bound and TTL.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*entry
	maxSize int
	maxAge  time.Duration
	hits    int64
	misses  int64
}

type entry struct {
	plan      *model.Plan
	createdAt time.Time
	expiresAt time.Time
}

// NewMemory creates a memory store holding at most maxSize plans for
// maxAge each. Non-positive values fall back to 32 entries and 24h.
func NewMemory(maxSize int, maxAge time.Duration) *Memory {
	if maxSize <= 0 {
		maxSize = 32
	}
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &Memory{
		entries: make(map[string]*entry),
		maxSize: maxSize,
		maxAge:  maxAge,
	}
}

// Get retrieves a cached plan.
func (c *Memory) Get(_ context.Context, key string) (*model.Plan, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false, nil
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		c.misses++
		return nil, false, nil
	}
	c.hits++
	return e.plan, true, nil
}

// Put stores a plan, evicting the oldest entry when full.
func (c *Memory) Put(_ context.Context, key string, plan *model.Plan) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	now := time.Now()
	c.entries[key] = &entry{
		plan:      plan,
		createdAt: now,
		expiresAt: now.Add(c.maxAge),
	}
	return nil
}

// Invalidate removes a specific entry.
func (c *Memory) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Stats returns cache statistics.
func (c *Memory) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Backend: "memory",
		Entries: len(c.entries),
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: hitRate(c.hits, c.misses),
	}
}

// Close is a no-op.
func (c *Memory) Close() error { return nil }

func (c *Memory) evictOldest() {
	var oldest *entry
	var oldestKey string

	for key, e := range c.entries {
		if oldest == nil || e.createdAt.Before(oldest.createdAt) {
			oldest = e
			oldestKey = key
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) (*model.Plan, bool, error) { return nil, false, nil }
func (Nop) Put(context.Context, string, *model.Plan) error { return nil }
func (Nop) Stats() Stats { return Stats{Backend: "none"} }
func (Nop) Close() error { return nil }
