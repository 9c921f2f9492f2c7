package emitter

import (
	"errors"
	"sync"
	"testing"

	"breakoutengine/internal/model"
)

// fakeStore is an in-memory SignalStore used to test Emitter logic in
// isolation from SQLite, enforcing the same (plan_id,state,timestamp_ms)
// uniqueness the real Signal Store enforces via its UNIQUE index.
type fakeStore struct {
	mu   sync.Mutex
	rows map[model.DedupKey]model.Signal
	seed []model.DedupKey
}

var errDuplicate = errors.New("duplicate key")

func newFakeStore(seed ...model.DedupKey) *fakeStore {
	return &fakeStore{rows: map[model.DedupKey]model.Signal{}, seed: seed}
}

func (s *fakeStore) Insert(sig model.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := model.DedupKey{PlanID: sig.PlanID, State: sig.State, TimestampMs: sig.TimestampMs}
	if _, exists := s.rows[key]; exists {
		return errDuplicate
	}
	s.rows[key] = sig
	return nil
}

func (s *fakeStore) ListDedupKeys() ([]model.DedupKey, error) {
	return s.seed, nil
}

func (s *fakeStore) rowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

type countingSink struct {
	mu    sync.Mutex
	count int
}

func (c *countingSink) Name() string { return "counting" }
func (c *countingSink) Deliver(sig model.Signal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	return nil
}

func isDuplicate(err error) bool { return errors.Is(err, errDuplicate) }

func TestEmitIfNew_FirstEmitDispatchesSinks(t *testing.T) {
	store := newFakeStore()
	sink := &countingSink{}
	e, err := New(store, NewMemCache(), isDuplicate, sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sig := model.Signal{PlanID: "p1", State: "triggered", TimestampMs: 1000}
	outcome, err := e.EmitIfNew(sig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != Emitted {
		t.Errorf("expected Emitted, got %v", outcome)
	}
	if sink.count != 1 {
		t.Errorf("expected 1 sink dispatch, got %d", sink.count)
	}
}

func TestEmitIfNew_SecondEmitIsDuplicateViaCache(t *testing.T) {
	store := newFakeStore()
	sink := &countingSink{}
	e, _ := New(store, NewMemCache(), isDuplicate, sink)

	sig := model.Signal{PlanID: "p1", State: "triggered", TimestampMs: 1000}
	e.EmitIfNew(sig)
	outcome, err := e.EmitIfNew(sig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != Duplicate {
		t.Errorf("expected Duplicate, got %v", outcome)
	}
	if sink.count != 1 {
		t.Errorf("expected exactly 1 sink dispatch across both calls, got %d", sink.count)
	}
	if store.rowCount() != 1 {
		t.Errorf("expected exactly 1 store row, got %d", store.rowCount())
	}
}

func TestEmitIfNew_StoreCollisionFallsBackToDuplicate(t *testing.T) {
	store := newFakeStore()
	sink := &countingSink{}
	e, _ := New(store, NewMemCache(), isDuplicate, sink)

	sig := model.Signal{PlanID: "p1", State: "triggered", TimestampMs: 1000}
	// Pre-populate the store directly, bypassing the cache, to force the
	// store-collision path (step 3) rather than the cache-hit path (step 2).
	store.Insert(sig)

	outcome, err := e.EmitIfNew(sig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != Duplicate {
		t.Errorf("expected Duplicate from store collision, got %v", outcome)
	}
	if sink.count != 0 {
		t.Errorf("expected no sink dispatch on store-collision duplicate, got %d", sink.count)
	}
}

func TestEmitIfNew_ConcurrentIdenticalSignalsYieldOneEmitOneDuplicate(t *testing.T) {
	store := newFakeStore()
	sink := &countingSink{}
	e, _ := New(store, NewMemCache(), isDuplicate, sink)

	sig := model.Signal{PlanID: "p1", State: "triggered", TimestampMs: 1000}

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			o, _ := e.EmitIfNew(sig)
			outcomes[i] = o
		}(i)
	}
	wg.Wait()

	emittedCount, duplicateCount := 0, 0
	for _, o := range outcomes {
		switch o {
		case Emitted:
			emittedCount++
		case Duplicate:
			duplicateCount++
		}
	}
	if emittedCount != 1 || duplicateCount != 1 {
		t.Fatalf("expected exactly one Emitted and one Duplicate, got %v", outcomes)
	}
	if store.rowCount() != 1 {
		t.Errorf("expected exactly 1 store row, got %d", store.rowCount())
	}
	if sink.count != 1 {
		t.Errorf("expected exactly 1 sink dispatch, got %d", sink.count)
	}
}

func TestNew_SeedsCacheFromStore(t *testing.T) {
	seedKey := model.DedupKey{PlanID: "p1", State: "expired", TimestampMs: 500}
	store := newFakeStore(seedKey)
	sink := &countingSink{}
	e, err := New(store, NewMemCache(), isDuplicate, sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A signal matching a seeded key must be treated as already-seen even
	// though this process never inserted it itself (restart idempotency).
	sig := model.Signal{PlanID: "p1", State: "expired", TimestampMs: 500}
	outcome, _ := e.EmitIfNew(sig)
	if outcome != Duplicate {
		t.Errorf("expected Duplicate for pre-seeded key, got %v", outcome)
	}
	if sink.count != 0 {
		t.Errorf("expected no sink dispatch for a pre-seeded duplicate, got %d", sink.count)
	}
}
