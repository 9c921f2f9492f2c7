package model

// ProtocolVersion identifies the wire shape of Signal.
const ProtocolVersion = "breakout-v1"

// SignalMetrics is the metrics snapshot embedded in an emitted signal.
type SignalMetrics struct {
	RVOL    *float64 `json:"rvol"`
	NATRPct *float64 `json:"natr_pct"`
	ATR     *float64 `json:"atr"`
	Pinbar  bool     `json:"pinbar"`
}

// SignalRuntime is the runtime block embedded in an emitted signal.
type SignalRuntime struct {
	ArmedAt       *string `json:"armed_at"`
	TriggeredAt   *string `json:"triggered_at"`
	InvalidReason *string `json:"invalid_reason"`
}

// Signal is one terminal-state event for a plan: triggered, invalid or
// expired. The triple (PlanID, State, TimestampMs) is globally unique.
type Signal struct {
	PlanID          string        `json:"plan_id"`
	State           string        `json:"state"` // triggered | invalid | expired
	TimestampMs     int64         `json:"-"`
	Runtime         SignalRuntime `json:"runtime"`
	LastPrice       float64       `json:"last_price"`
	Metrics         SignalMetrics `json:"metrics"`
	StrengthScore   int           `json:"strength_score"`
	ProtocolVersion string        `json:"protocol_version"`
}

// DedupKey is the (plan_id, state, timestamp_ms) uniqueness triple.
type DedupKey struct {
	PlanID      string
	State       string
	TimestampMs int64
}
