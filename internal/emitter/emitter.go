// Package emitter implements the Signal Emitter (spec §4.6): the boundary
// between a plan's terminal state-machine transition and everything that
// observes it durably; the distributed-cache resilience wrapper is backed
// by internal/store/rediscache's circuit breaker.
package emitter

import (
	"log"

	"breakoutengine/internal/apperrors"
	"breakoutengine/internal/model"
)

// Outcome is the result of an EmitIfNew call.
type Outcome string

const (
	Emitted   Outcome = "emitted"
	Duplicate Outcome = "duplicate"
)

// SignalStore is the durable append-only backing the Emitter writes
// through. Insert must return apperrors' sentinel-free duplicate signal via
// ErrDuplicateKey (see internal/store/sqlite) on a unique-constraint
// collision; any other error is a durability failure.
type SignalStore interface {
	Insert(sig model.Signal) error
	ListDedupKeys() ([]model.DedupKey, error)
}

// Sink delivers an emitted signal to one external destination (log,
// webhook, websocket broadcast, ...). Sink errors are isolated per spec §4.6
// step 5: logged, never propagated.
type Sink interface {
	Name() string
	Deliver(sig model.Signal) error
}

// Emitter implements EmitIfNew (spec §4.6).
type Emitter struct {
	store       SignalStore
	cache       DedupCache
	sinks       []Sink
	isDuplicate func(error) bool
}

// New constructs an Emitter and seeds its dedup cache from the store so
// idempotency survives restarts (spec §4.6 final paragraph). isDuplicate
// classifies a SignalStore.Insert error as a unique-constraint collision;
// pass the store package's own ErrDuplicateKey comparison (e.g.
// errors.Is(err, sqlite.ErrDuplicateKey)).
func New(store SignalStore, cache DedupCache, isDuplicate func(error) bool, sinks ...Sink) (*Emitter, error) {
	e := &Emitter{store: store, cache: cache, sinks: sinks, isDuplicate: isDuplicate}

	keys, err := store.ListDedupKeys()
	if err != nil {
		return nil, &apperrors.StoreError{Op: "seed dedup cache", Err: err}
	}
	cache.Seed(keys)
	log.Printf("[emitter] seeded dedup cache with %d keys from store", len(keys))

	return e, nil
}

// EmitIfNew runs the exact five-step contract of spec §4.6:
//  1. Compute the dedup key (plan_id, state, timestamp_ms).
//  2. Check the in-memory cache; a hit returns Duplicate without touching
//     the store.
//  3. Attempt to insert into the Signal Store. A unique-constraint
//     collision marks the key seen and returns Duplicate.
//  4. On successful insert, mark the key seen and dispatch to every sink.
//  5. Sink failures are logged only — they never roll back the insert nor
//     propagate to the caller (the state machine).
func (e *Emitter) EmitIfNew(sig model.Signal) (Outcome, error) {
	key := model.DedupKey{PlanID: sig.PlanID, State: sig.State, TimestampMs: sig.TimestampMs}

	if e.cache.Seen(key) {
		return Duplicate, nil
	}

	err := e.store.Insert(sig)
	if err != nil {
		if e.isDuplicate(err) {
			e.cache.MarkSeen(key)
			return Duplicate, nil
		}
		return "", &apperrors.StoreError{Op: "insert signal", Err: err}
	}

	e.cache.MarkSeen(key)
	e.dispatch(sig)
	return Emitted, nil
}

func (e *Emitter) dispatch(sig model.Signal) {
	for _, sink := range e.sinks {
		if err := sink.Deliver(sig); err != nil {
			log.Printf("[emitter] %v", &apperrors.DeliveryError{Sink: sink.Name(), Err: err})
		}
	}
}
