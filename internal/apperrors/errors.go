// Package apperrors defines the error taxonomy of §7: which failures are
// recoverable per-tick, which are fatal to a single admission, and which
// must never propagate out of their owning subsystem.
package apperrors

import "fmt"

// ParseError means a payload was malformed. The tick is dropped for that
// instrument; the normalizers stop at the first malformed row or field. Index
// names the offending row's position within the payload's data array
// (-1 if the error isn't scoped to one row, e.g. a malformed envelope).
type ParseError struct {
	Field   string
	Raw     string
	Message string
	Index   int
}

func (e *ParseError) Error() string {
	switch {
	case e.Field == "" && e.Index < 0:
		return fmt.Sprintf("parse error: %s", e.Message)
	case e.Field == "":
		return fmt.Sprintf("parse error: row %d: %s", e.Index, e.Message)
	case e.Index < 0:
		return fmt.Sprintf("parse error: field %q (raw %q): %s", e.Field, e.Raw, e.Message)
	default:
		return fmt.Sprintf("parse error: row %d field %q (raw %q): %s", e.Index, e.Field, e.Raw, e.Message)
	}
}

// PriceSpikeError is raised by the spike filter; the offending bar is
// dropped and the data store is left unmutated.
type PriceSpikeError struct {
	InstrumentID string
	LastPrice    float64
	Close        float64
	Threshold    float64
}

func (e *PriceSpikeError) Error() string {
	return fmt.Sprintf("price spike on %s: |%.8g-%.8g| exceeds threshold %.8g",
		e.InstrumentID, e.Close, e.LastPrice, e.Threshold)
}

// InvalidPriceError means a payload's OHLC or book invariants failed
// validation (not a spike — a structurally inconsistent value).
type InvalidPriceError struct {
	Message string
}

func (e *InvalidPriceError) Error() string { return "invalid price data: " + e.Message }

// ConfigValidationError is fatal to the entity being admitted (a plan or a
// config layer merge) but never fatal to the engine.
type ConfigValidationError struct {
	Field   string
	Message string
}

func (e *ConfigValidationError) Error() string {
	if e.Field == "" {
		return "config validation: " + e.Message
	}
	return fmt.Sprintf("config validation: field %q: %s", e.Field, e.Message)
}

// DuplicateSignalError is internal to the Emitter; callers observe the
// {emitted|duplicate} outcome instead, never this error type.
type DuplicateSignalError struct {
	PlanID      string
	State       string
	TimestampMs int64
}

func (e *DuplicateSignalError) Error() string {
	return fmt.Sprintf("duplicate signal: plan=%s state=%s ts=%d", e.PlanID, e.State, e.TimestampMs)
}

// DeliveryError is isolated to a single sink: logged, never affects state
// or store.
type DeliveryError struct {
	Sink string
	Err  error
}

func (e *DeliveryError) Error() string { return fmt.Sprintf("delivery to %s failed: %v", e.Sink, e.Err) }
func (e *DeliveryError) Unwrap() error { return e.Err }

// StoreError is a durability failure. The emitter must refuse to emit (no
// in-memory short-circuit) and surface this to the coordinator, which logs
// and continues — the plan stays in its pre-emission terminal state and
// retries emission on the next tick.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store error during %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

// FatalInvariantError marks a programming-invariant violation (e.g. a
// non-monotonic state transition attempt) — the only class of error this
// engine treats as an assertion rather than a recoverable condition.
type FatalInvariantError struct {
	Message string
}

func (e *FatalInvariantError) Error() string { return "invariant violated: " + e.Message }
