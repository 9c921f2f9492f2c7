package emitter

import (
	"context"
	"sync"

	"breakoutengine/internal/model"
)

// DedupCache is the Emitter's in-memory-set abstraction (spec §4.6 step 2).
// Implementations need not be durable — the Signal Store's unique
// constraint is the actual source of truth (step 3); the cache only lets
// the common case (a plan's signal seen before) skip the store round-trip.
type DedupCache interface {
	// Seen reports whether key has already been recorded.
	Seen(key model.DedupKey) bool
	// MarkSeen records key.
	MarkSeen(key model.DedupKey)
	// Seed bulk-loads keys on startup so idempotency survives restarts.
	Seed(keys []model.DedupKey)
}

// memCache is the default DedupCache: a sync.Map-backed in-process set,
// matching spec §4.6 exactly for a single-process deployment.
type memCache struct {
	seen sync.Map // model.DedupKey -> struct{}
}

// NewMemCache returns the default in-process DedupCache.
func NewMemCache() DedupCache {
	return &memCache{}
}

func (c *memCache) Seen(key model.DedupKey) bool {
	_, ok := c.seen.Load(key)
	return ok
}

func (c *memCache) MarkSeen(key model.DedupKey) {
	c.seen.Store(key, struct{}{})
}

func (c *memCache) Seed(keys []model.DedupKey) {
	for _, k := range keys {
		c.seen.Store(k, struct{}{})
	}
}

// distributedCache layers a Redis-backed cache in front of the in-process
// one for horizontally scaled deployments (multiple coordinator processes
// against one Signal Store). Seed only populates the local memCache — the
// distributed side is reseeded implicitly as MarkSeen calls land from every
// process.
type distributedCache struct {
	local  *memCache
	remote RemoteCache
}

// RemoteCache is the subset of internal/store/rediscache.Cache the Emitter
// depends on, kept as an interface here so this package never imports
// go-redis directly.
type RemoteCache interface {
	Seen(ctx context.Context, key model.DedupKey) (seen bool, ok bool)
	MarkSeen(ctx context.Context, key model.DedupKey)
}

// NewDistributedCache wraps remote with a local in-process cache. remote
// failures (circuit open) degrade transparently to local-only dedup.
func NewDistributedCache(remote RemoteCache) DedupCache {
	return &distributedCache{local: &memCache{}, remote: remote}
}

func (c *distributedCache) Seen(key model.DedupKey) bool {
	if c.local.Seen(key) {
		return true
	}
	seen, ok := c.remote.Seen(context.Background(), key)
	return ok && seen
}

func (c *distributedCache) MarkSeen(key model.DedupKey) {
	c.local.MarkSeen(key)
	c.remote.MarkSeen(context.Background(), key)
}

func (c *distributedCache) Seed(keys []model.DedupKey) {
	c.local.Seed(keys)
}
