package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"breakoutengine/internal/emitter"
	"breakoutengine/internal/model"
	"breakoutengine/internal/planconfig"
)

func candleEnvelope(tsMs int64, open, high, low, close, vol float64, confirm string) []byte {
	return []byte(fmt.Sprintf(
		`{"code":"0","msg":"","data":[["%d","%v","%v","%v","%v","%v","0","0","%s"]]}`,
		tsMs, open, high, low, close, vol, confirm,
	))
}

func longPlan(id, instrumentID string, level float64) model.Plan {
	return model.Plan{
		ID:           id,
		InstrumentID: instrumentID,
		Direction:    model.DirectionLong,
		EntryType:    "breakout",
		EntryPrice:   level,
		CreatedAtMs:  1000,
	}
}

func TestAdmitPlan_RejectsInvalidPlan(t *testing.T) {
	c := New(nil)
	if err := c.AdmitPlan(model.Plan{}); err == nil {
		t.Fatal("expected error admitting an empty plan")
	}
}

func TestAdmitPlan_AcceptsValidPlan(t *testing.T) {
	c := New(nil)
	plan := longPlan("p1", "ETH-USDT-SWAP", 100.0)
	if err := c.AdmitPlan(plan); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEvaluateTick_AppliesCandlestickAndSteps(t *testing.T) {
	c := New(nil)
	plan := longPlan("p1", "ETH-USDT-SWAP", 100.0)
	if err := c.AdmitPlan(plan); err != nil {
		t.Fatalf("admit: %v", err)
	}

	payload := candleEnvelope(1000, 98.0, 99.0, 97.5, 98.5, 500, "1")
	signals, err := c.EvaluateTick("ETH-USDT-SWAP", "1m", payload, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(signals) != 0 {
		t.Fatalf("expected no terminal signal on a bar below the trigger level, got %v", signals)
	}

	rt, ok := c.runtimes.Get("ETH-USDT-SWAP").PlanState("p1")
	if !ok {
		t.Fatal("expected plan state to exist")
	}
	if rt.Status != model.StatusPending {
		t.Fatalf("expected plan to remain PENDING below the trigger level, got %v", rt.Status)
	}
}

func TestEvaluateTick_UnknownInstrumentReturnsNoSignals(t *testing.T) {
	c := New(nil)
	signals, err := c.EvaluateTick("NOPE-USDT-SWAP", "1m", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(signals) != 0 {
		t.Fatalf("expected no signals for an instrument with no admitted plans, got %v", signals)
	}
}

func TestEvaluateTick_RejectsMalformedCandlestickPayload(t *testing.T) {
	c := New(nil)
	if _, err := c.EvaluateTick("ETH-USDT-SWAP", "1m", []byte(`not json`), nil); err == nil {
		t.Fatal("expected a parse error for malformed payload")
	}
}

func TestEvaluateTick_RejectsMalformedOrderbookPayload(t *testing.T) {
	c := New(nil)
	if _, err := c.EvaluateTick("ETH-USDT-SWAP", "1m", nil, []byte(`not json`)); err == nil {
		t.Fatal("expected a parse error for malformed payload")
	}
}

func TestRun_ProcessesTicksUntilChannelCloses(t *testing.T) {
	c := New(nil)
	plan := longPlan("p1", "ETH-USDT-SWAP", 100.0)
	if err := c.AdmitPlan(plan); err != nil {
		t.Fatalf("admit: %v", err)
	}

	tickCh := make(chan Tick, 1)
	tickCh <- Tick{
		InstrumentID:       "ETH-USDT-SWAP",
		Timeframe:          "1m",
		CandlestickPayload: candleEnvelope(1000, 98.0, 99.0, 97.5, 98.5, 500, "1"),
	}
	close(tickCh)

	done := make(chan struct{})
	go func() {
		c.Run(context.Background(), tickCh, nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after the tick channel closed")
	}
}

func TestRun_StopsOnContextCancellation(t *testing.T) {
	c := New(nil)
	tickCh := make(chan Tick)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		c.Run(ctx, tickCh, nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

// flakyStore is a SignalStore whose Insert fails with a durability error the
// first failCount times it's called, then succeeds, letting tests drive the
// StoreError retry path (spec §7) without a real database.
type flakyStore struct {
	mu        sync.Mutex
	failCount int
	calls     int
	rows      []model.Signal
}

var errFlaky = errors.New("durability failure")

func (s *flakyStore) Insert(sig model.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failCount {
		return errFlaky
	}
	s.rows = append(s.rows, sig)
	return nil
}

func (s *flakyStore) ListDedupKeys() ([]model.DedupKey, error) { return nil, nil }

func (s *flakyStore) rowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func isFlaky(err error) bool { return errors.Is(err, errFlaky) }

// TestEvaluateTick_RetriesTerminalSignalAfterStoreError exercises spec §7's
// StoreError policy: a plan that reaches a terminal state on a tick whose
// emission fails durably must stay terminal and have its signal retried (and
// eventually delivered) on a later tick, rather than being dropped.
func TestEvaluateTick_RetriesTerminalSignalAfterStoreError(t *testing.T) {
	store := &flakyStore{failCount: 1}
	emit, err := emitter.New(store, emitter.NewMemCache(), isFlaky)
	if err != nil {
		t.Fatalf("unexpected error constructing emitter: %v", err)
	}
	c := New(emit)

	plan := longPlan("p1", "ETH-USDT-SWAP", 100.0)
	oneSecond := int64(1)
	plan.Extra.InvalidationConditions = []model.InvalidationCondition{
		{Type: model.ConditionTimeLimit, DurationSeconds: &oneSecond},
	}
	if err := c.AdmitPlan(plan); err != nil {
		t.Fatalf("admit: %v", err)
	}

	payload := candleEnvelope(3000, 98.0, 99.0, 97.5, 98.5, 500, "1")

	signals, err := c.EvaluateTick("ETH-USDT-SWAP", "1m", payload, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(signals) != 0 {
		t.Fatalf("expected the first, failed emit attempt to yield no signals, got %v", signals)
	}

	rt, ok := c.runtimes.Get("ETH-USDT-SWAP").PlanState("p1")
	if !ok {
		t.Fatal("expected plan state to exist")
	}
	if rt.Status != model.StatusExpired {
		t.Fatalf("expected the plan to reach its terminal state despite the emit failure, got %v", rt.Status)
	}
	if rt.PendingSignal == nil {
		t.Fatal("expected the unemitted signal to remain pending for retry")
	}
	if store.rowCount() != 0 {
		t.Fatalf("expected no store row after the failed emit, got %d", store.rowCount())
	}

	// A later tick (same payload; the plan is already terminal and won't be
	// re-stepped) retries the pending signal, which now succeeds.
	signals, err = c.EvaluateTick("ETH-USDT-SWAP", "1m", payload, nil)
	if err != nil {
		t.Fatalf("unexpected error on retry: %v", err)
	}
	if len(signals) != 1 {
		t.Fatalf("expected the retried signal to be emitted exactly once, got %v", signals)
	}
	if signals[0].PlanID != "p1" || signals[0].State != "expired" {
		t.Fatalf("unexpected retried signal: %+v", signals[0])
	}

	rt, _ = c.runtimes.Get("ETH-USDT-SWAP").PlanState("p1")
	if rt.PendingSignal != nil {
		t.Fatalf("expected the pending signal to be cleared after a successful emit, got %+v", rt.PendingSignal)
	}
	if store.rowCount() != 1 {
		t.Fatalf("expected exactly 1 store row after the retry succeeds, got %d", store.rowCount())
	}
}

func TestLayerRegistry_GlobalAppliesToEveryInstrumentUnlessOverridden(t *testing.T) {
	l := newLayerRegistry()
	if g, i := l.get("X"); g != nil || i != nil {
		t.Fatal("expected both layers nil before anything is set")
	}

	global := &planconfig.ParamLayer{ATR: &planconfig.ATROverrides{}}
	override := &planconfig.ParamLayer{Volume: &planconfig.VolumeOverrides{}}
	l.setGlobal(global)
	l.setInstrument("X", override)

	if g, i := l.get("X"); g != global || i != override {
		t.Fatal("expected X to see both its own override and the global layer")
	}
	if g, i := l.get("Y"); g != global || i != nil {
		t.Fatal("expected Y to see the global layer with no instrument override")
	}
}
