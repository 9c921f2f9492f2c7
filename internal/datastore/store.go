// Package datastore owns the per-instrument rolling state: a bounded bar
// buffer and volume history per timeframe, the latest order-book snapshot,
// and the last traded price. It is mutated only by the Coordinator via
// Normalizer output and is read-only to metrics and the state machine.
package datastore

import (
	"sync"

	"breakoutengine/internal/model"
)

// timeframeState is the rolling window for one (instrument, timeframe)
// pair: closed-bar history, parallel volume history, and the current
// developing (mutable) bar, if any.
//
// The bucket-transition rule below — a later timestamp finalizes the
// current developing bar into history before a new one starts — matches
// the rule an 1s-candle-to-dynamic-timeframe resampler would use.
type timeframeState struct {
	bars       *Ring[model.Bar]
	volumes    *Ring[float64]
	developing *model.Bar
}

// Store is the per-instrument data store. One Store exists per instrument
// and is owned by that instrument's worker (spec §5) — callers must not
// share a Store across goroutines without external synchronization, though
// Store itself is safe for concurrent use via its own mutex.
type Store struct {
	mu           sync.Mutex
	instrumentID string
	timeframes   map[string]*timeframeState

	book     *model.BookSnapshot
	prevBook *model.BookSnapshot

	lastPrice    float64
	lastPriceTs  int64
	hasLastPrice bool
}

// New creates an empty Store for one instrument.
func New(instrumentID string) *Store {
	return &Store{
		instrumentID: instrumentID,
		timeframes:   make(map[string]*timeframeState),
	}
}

func (s *Store) tf(timeframe string, capacity int) *timeframeState {
	tf, ok := s.timeframes[timeframe]
	if !ok {
		tf = &timeframeState{
			bars:    NewRing[model.Bar](capacity),
			volumes: NewRing[float64](capacity),
		}
		s.timeframes[timeframe] = tf
		return tf
	}
	if tf.bars.Cap() < capacity {
		tf.bars.SetCapacity(capacity)
		tf.volumes.SetCapacity(capacity)
	}
	return tf
}

// ApplyBar applies one parsed bar to the store under the ordering rule of
// spec §4.1: a bar whose timestamp matches the current developing bar
// replaces it in place; a bar with a later timestamp first closes the
// current developing bar into history (and its volume into volume
// history), then the new bar becomes the developing bar (or is appended
// directly to history if it already arrives closed).
//
// minCapacity bounds the rolling window (max(atr.period, rvol.period) +
// margin per spec §4.2); it only ever grows a timeframe's buffer.
//
// Returns the bar that was closed into history as a side effect of this
// call (nil if none), which the coordinator uses to know a bar "just
// closed" this tick. ApplyBar updates the last-trade-price bookkeeping
// itself.
func (s *Store) ApplyBar(bar model.Bar, minCapacity int) *model.Bar {
	s.mu.Lock()
	defer s.mu.Unlock()

	tf := s.tf(bar.Timeframe, minCapacity)

	var justClosed *model.Bar

	switch {
	case tf.developing != nil && tf.developing.TimestampMs == bar.TimestampMs:
		// Same bucket: replace developing state in place.
		b := bar
		tf.developing = &b

	case tf.developing != nil && bar.TimestampMs > tf.developing.TimestampMs:
		// New bucket: finalize the old developing bar into history first.
		closed := *tf.developing
		closed.IsClosed = true
		tf.bars.Push(closed)
		tf.volumes.Push(closed.VolumeBase)
		justClosed = &closed
		b := bar
		tf.developing = &b

	default:
		// No developing bar yet, or an out-of-order (earlier) timestamp:
		// treat as the new developing bar. Out-of-order bars are not
		// expected under the ordering invariant but are not silently
		// dropped either — they simply cannot retroactively close a bar
		// that has already closed.
		b := bar
		tf.developing = &b
	}

	if tf.developing != nil && tf.developing.IsClosed {
		closed := *tf.developing
		tf.bars.Push(closed)
		tf.volumes.Push(closed.VolumeBase)
		justClosed = &closed
		tf.developing = nil
	}

	if justClosed != nil {
		s.updateLastPrice(justClosed.Close, justClosed.TimestampMs)
	} else if tf.developing != nil {
		s.updateLastPrice(tf.developing.Close, tf.developing.TimestampMs)
	}

	return justClosed
}

func (s *Store) updateLastPrice(price float64, ts int64) {
	if s.hasLastPrice && ts < s.lastPriceTs {
		return
	}
	s.lastPrice = price
	s.lastPriceTs = ts
	s.hasLastPrice = true
}

// ApplyBook replaces the latest order-book snapshot, returning the
// previous one (nil if this is the first).
func (s *Store) ApplyBook(book model.BookSnapshot) *model.BookSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.book
	s.prevBook = s.book
	b := book
	s.book = &b
	return prev
}

// Snapshot is a consistent, read-only view of one timeframe's rolling
// state plus the shared book/last-price fields.
type Snapshot struct {
	ClosedBars    []model.Bar
	VolumeHistory []float64
	Developing    *model.Bar
	Book          *model.BookSnapshot
	PrevBook      *model.BookSnapshot
	LastPrice     float64
	LastPriceTs   int64
	HasLastPrice  bool
}

// Snapshot returns a consistent read-only snapshot for the given
// timeframe. If the timeframe has not been seen yet, ClosedBars and
// VolumeHistory are empty and Developing is nil.
func (s *Store) Snapshot(timeframe string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Book:         s.book,
		PrevBook:     s.prevBook,
		LastPrice:    s.lastPrice,
		LastPriceTs:  s.lastPriceTs,
		HasLastPrice: s.hasLastPrice,
	}

	tf, ok := s.timeframes[timeframe]
	if !ok {
		return snap
	}
	snap.ClosedBars = tf.bars.Slice()
	snap.VolumeHistory = tf.volumes.Slice()
	if tf.developing != nil {
		d := *tf.developing
		snap.Developing = &d
	}
	return snap
}
