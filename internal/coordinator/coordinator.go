// Package coordinator implements the Engine Coordinator (spec §4.8): the
// single tick entry point that orders ingestion, metrics computation,
// per-plan state machine evaluation and emission.
package coordinator

import (
	"context"
	"log"

	"breakoutengine/internal/apperrors"
	"breakoutengine/internal/datastore"
	"breakoutengine/internal/emitter"
	"breakoutengine/internal/metrics"
	"breakoutengine/internal/model"
	"breakoutengine/internal/normalize"
	"breakoutengine/internal/planconfig"
	"breakoutengine/internal/state"
)

// Coordinator wires together the Data Store, Metrics Calculator, Config
// Resolver, State Machine Runtime and Signal Emitter behind a single
// EvaluateTick entry point.
type Coordinator struct {
	stores   *datastore.Registry
	runtimes *state.RuntimeRegistry
	emit     *emitter.Emitter
	layers   *layerRegistry
}

// New constructs a Coordinator. emit may be nil in tests that only want to
// exercise state transitions without a durable store.
func New(emit *emitter.Emitter) *Coordinator {
	return &Coordinator{
		stores:   datastore.NewRegistry(),
		runtimes: state.NewRuntimeRegistry(),
		emit:     emit,
		layers:   newLayerRegistry(),
	}
}

// SetGlobalLayer installs the global parameter layer (spec §4.5's
// lowest-precedence layer).
func (c *Coordinator) SetGlobalLayer(layer *planconfig.ParamLayer) {
	c.layers.setGlobal(layer)
}

// SetInstrumentLayer installs the per-instrument override layer.
func (c *Coordinator) SetInstrumentLayer(instrumentID string, layer *planconfig.ParamLayer) {
	c.layers.setInstrument(instrumentID, layer)
}

// AdmitPlan validates plan (spec §4.4 admission), resolves its effective
// parameters against the global/instrument layers plus the plan's own
// extra_data.breakout_params layer (spec §4.5's plan-precedence layer), and
// registers it in the instrument's Runtime.
func (c *Coordinator) AdmitPlan(plan model.Plan) error {
	if err := planconfig.AdmitPlan(plan); err != nil {
		return err
	}

	planLayer, err := planconfig.PlanLayer(plan)
	if err != nil {
		return err
	}

	global, instrument := c.layers.get(plan.InstrumentID)
	params, err := planconfig.Merge(global, instrument, planLayer)
	if err != nil {
		return err
	}

	c.runtimes.Get(plan.InstrumentID).Admit(plan, params)
	return nil
}

// EvaluateTick runs spec §4.8's five numbered steps for one instrument:
// apply the orderbook payload, apply the candlestick payload (spike
// rejections logged and dropped), compute a Metrics snapshot for the
// instrument, step every bound plan's state machine in admission order, and
// emit any resulting terminal signals.
//
// timeframe identifies which (instrument, timeframe) bucket candlestickPayload
// belongs to, and which timeframe bucket this tick's Metrics snapshot is
// read from; either payload may be nil if this tick carries only the other.
// Every plan bound to instrumentID is stepped against this one snapshot
// regardless of its own EvaluationTimeframe setting — the engine computes
// one Metrics snapshot per tick, not one per plan (spec §4.8 step 3).
func (c *Coordinator) EvaluateTick(instrumentID, timeframe string, candlestickPayload, orderbookPayload []byte) ([]model.Signal, error) {
	store := c.stores.Get(instrumentID)
	global, instrumentLayer := c.layers.get(instrumentID)
	ingestParams, err := planconfig.Merge(global, instrumentLayer, nil)
	if err != nil {
		return nil, err
	}

	if orderbookPayload != nil {
		book, err := normalize.NormalizeOrderbook(orderbookPayload, instrumentID)
		if err != nil {
			return nil, err
		}
		store.ApplyBook(book)
	}

	var justClosed *model.Bar
	if candlestickPayload != nil {
		justClosed, err = c.applyCandlesticks(store, instrumentID, timeframe, candlestickPayload, ingestParams)
		if err != nil {
			return nil, err
		}
	}

	snap := store.Snapshot(timeframe)
	snapMetrics := metrics.Calculate(snap, ingestParams)
	inputs := buildTickInputs(instrumentID, snap, snapMetrics, justClosed)

	runtime := c.runtimes.Get(instrumentID)

	var emitted []model.Signal

	// Retry any signal that reached a terminal state on a prior tick but
	// failed to durably emit (spec §7: "the plan remains in its
	// pre-emission terminal state and will retry emission on the next
	// tick"). These plans are already terminal, so StepAll below will not
	// re-Step them.
	for _, sig := range runtime.PendingSignals() {
		emitted = append(emitted, c.tryEmit(runtime, sig, true)...)
	}

	signals := runtime.StepAll(inputs)
	for _, sig := range signals {
		emitted = append(emitted, c.tryEmit(runtime, sig, false)...)
	}

	return emitted, nil
}

// tryEmit attempts to durably emit sig, marking it emitted (and clearing
// any PendingSignal) on success or on a confirmed duplicate; on a
// StoreError it logs and leaves PendingSignal set so a later tick retries.
// retry labels the log line for a retried-from-a-prior-tick attempt versus
// a freshly produced one.
func (c *Coordinator) tryEmit(runtime *state.Runtime, sig model.Signal, retry bool) []model.Signal {
	outcome, err := c.emitSignal(sig)
	if err != nil {
		verb := "emit"
		if retry {
			verb = "retry emit"
		}
		log.Printf("[coordinator] %s error for plan %s: %v", verb, sig.PlanID, err)
		return nil
	}
	runtime.MarkEmitted(sig.PlanID)
	if outcome == emitter.Emitted {
		return []model.Signal{sig}
	}
	return nil
}

// applyCandlesticks normalizes and applies every bar in payload to store in
// ascending order, dropping (and logging) any that fail the spike filter,
// and returns the most recent bar that closed into history while applying
// the payload, if any (spec §4.8 step 2; the drop-don't-reject contract is
// normalize.CheckSpike's).
func (c *Coordinator) applyCandlesticks(store *datastore.Store, instrumentID, timeframe string, payload []byte, params model.EffectiveParams) (*model.Bar, error) {
	bars, err := normalize.NormalizeCandlesticks(payload, instrumentID, timeframe)
	if err != nil {
		return nil, err
	}

	minCapacity := params.ATRPeriod
	if params.RVOLPeriod > minCapacity {
		minCapacity = params.RVOLPeriod
	}
	minCapacity += 2

	var lastClosed *model.Bar
	for _, bar := range bars {
		if params.SpikeFilterEnable {
			snap := store.Snapshot(timeframe)
			m := metrics.Calculate(snap, params)
			var atrValue float64
			var hasATR bool
			if m.ATR != nil {
				atrValue, hasATR = *m.ATR, true
			}
			if err := normalize.CheckSpike(instrumentID, bar.Close, snap.LastPrice, snap.HasLastPrice, atrValue, hasATR, params.SpikeATRMultiplier, params.SpikeFallbackPct); err != nil {
				log.Printf("[coordinator] dropping spiked bar for %s: %v", instrumentID, err)
				continue
			}
		}
		if closed := store.ApplyBar(bar, minCapacity); closed != nil {
			lastClosed = closed
		}
	}
	return lastClosed, nil
}

func buildTickInputs(instrumentID string, snap datastore.Snapshot, m model.MetricsSnapshot, justClosed *model.Bar) model.TickInputs {
	inputs := model.TickInputs{
		InstrumentID:  instrumentID,
		Metrics:       m,
		Book:          snap.Book,
		JustClosedBar: justClosed,
		LastPrice:     snap.LastPrice,
		HasLastPrice:  snap.HasLastPrice,
		MarketTs:      snap.LastPriceTs,
	}

	if snap.Developing != nil {
		inputs.HasDeveloping = true
		inputs.DevelopingHigh = snap.Developing.High
		inputs.DevelopingLow = snap.Developing.Low
	}

	return inputs
}

// Tick is one unit of work fed to Run: a payload pair for one instrument on
// one timeframe, mirroring EvaluateTick's own parameters.
type Tick struct {
	InstrumentID       string
	Timeframe          string
	CandlestickPayload []byte
	OrderbookPayload   []byte
}

// Run consumes Ticks and evaluates each in turn: a consume-fan-out-collect
// loop, single-threaded per instrument's Store, which owns its own mutex.
// Blocks until ctx is cancelled or tickCh is closed. Any resulting signals
// are passed to onSignals; errors are logged and the loop continues with
// the next tick.
func (c *Coordinator) Run(ctx context.Context, tickCh <-chan Tick, onSignals func([]model.Signal)) {
	for {
		select {
		case <-ctx.Done():
			return
		case tick, ok := <-tickCh:
			if !ok {
				return
			}
			signals, err := c.EvaluateTick(tick.InstrumentID, tick.Timeframe, tick.CandlestickPayload, tick.OrderbookPayload)
			if err != nil {
				log.Printf("[coordinator] tick evaluation failed for %s: %v", tick.InstrumentID, err)
				continue
			}
			if len(signals) > 0 && onSignals != nil {
				onSignals(signals)
			}
		}
	}
}

func (c *Coordinator) emitSignal(sig model.Signal) (emitter.Outcome, error) {
	if c.emit == nil {
		return emitter.Emitted, nil
	}
	outcome, err := c.emit.EmitIfNew(sig)
	if err != nil {
		return "", &apperrors.StoreError{Op: "emit signal", Err: err}
	}
	return outcome, nil
}
