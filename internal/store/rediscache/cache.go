package rediscache

import (
	"context"
	"fmt"
	"log"
	"time"

	"breakoutengine/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const keyTTL = 24 * time.Hour

// CacheConfig configures the Redis-backed dedup cache.
type CacheConfig struct {
	Addr         string
	Password     string
	DB           int
	MaxFailures  int
	ResetTimeout time.Duration
}

// Cache is a distributed dedup cache for the Signal Emitter, backing the
// same (plan_id, state, timestamp_ms) keyspace as the in-process cache so
// multiple coordinator processes sharing one Signal Store see a consistent
// view. A circuit breaker guards every call: once Redis is unreachable the
// breaker trips open and Seen/MarkSeen fail fast, so a Redis outage degrades
// the Emitter to in-process-only dedup instead of blocking emission (§7
// StoreError policy — cache failures never block, only store failures do).
type Cache struct {
	client *goredis.Client
	cb     *CircuitBreaker
}

// New creates a Redis-backed dedup cache and pings the server once.
func New(cfg CacheConfig) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	maxFailures := cfg.MaxFailures
	if maxFailures <= 0 {
		maxFailures = 5
	}
	resetTimeout := cfg.ResetTimeout
	if resetTimeout <= 0 {
		resetTimeout = 10 * time.Second
	}

	cb := NewCircuitBreaker(maxFailures, resetTimeout)
	cb.OnStateChange = func(from, to State) {
		log.Printf("[rediscache] circuit breaker %s -> %s", from, to)
	}

	log.Printf("[rediscache] connected to %s", cfg.Addr)
	return &Cache{client: client, cb: cb}, nil
}

// Seen reports whether key has already been recorded. The second return
// value is false if the breaker is open or Redis errored — callers must
// treat that as "unknown", not "not seen", and fall back to the Signal
// Store's unique-constraint check rather than trusting a negative.
func (c *Cache) Seen(ctx context.Context, key model.DedupKey) (seen bool, ok bool) {
	err := c.cb.Execute(func() error {
		n, err := c.client.Exists(ctx, redisKey(key)).Result()
		if err != nil {
			return err
		}
		seen = n > 0
		return nil
	})
	return seen, err == nil
}

// MarkSeen records key in the distributed cache. Failures are swallowed
// (logged by the breaker's state-change callback) since the in-process
// cache and the Signal Store's unique constraint are the durable source of
// truth; this cache is best-effort acceleration only.
func (c *Cache) MarkSeen(ctx context.Context, key model.DedupKey) {
	_ = c.cb.Execute(func() error {
		return c.client.SetNX(ctx, redisKey(key), "1", keyTTL).Err()
	})
}

// Close closes the underlying Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

func redisKey(key model.DedupKey) string {
	return fmt.Sprintf("dedup:%s:%s:%d", key.PlanID, key.State, key.TimestampMs)
}
