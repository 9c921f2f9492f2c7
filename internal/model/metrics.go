package model

// MetricsSnapshot is the derived indicator set for one instrument at tick
// time, computed lazily from the closed-bar history in the data store.
// A nil pointer field means "not enough data yet" (spec §4.3).
type MetricsSnapshot struct {
	// Timestamp is the market timestamp of the most recent closed bar used
	// to compute these metrics. Zero if no closed bar exists yet.
	Timestamp int64

	ATR      *float64
	NATRPct  *float64
	RVOL     *float64

	// ClosedBarVolume/TrueRange/OHLC describe the latest closed bar itself,
	// independent of whether ATR/RVOL are ready yet.
	HasClosedBar    bool
	ClosedBarOpen   float64
	ClosedBarHigh   float64
	ClosedBarLow    float64
	ClosedBarClose  float64
	ClosedBarVolume float64
	ClosedBarTrueRange float64

	Pinbar     bool
	PinbarSide Direction // meaningful only if Pinbar
	Doji       bool

	HasBook       bool
	SweepDetected bool
	SweepSide     Direction // breakout direction the sweep favors
	Imbalance     *float64
}

// TickInputs is the per-instrument, per-tick view handed to every plan's
// state machine step. It is assembled once per tick by the Coordinator from
// the data store and metrics calculator, and is read-only to all plans.
type TickInputs struct {
	InstrumentID string
	MarketTs     int64

	LastPrice    float64
	HasLastPrice bool

	HasDeveloping    bool
	DevelopingHigh   float64
	DevelopingLow    float64

	// JustClosedBar is non-nil exactly on the tick where a bar of the
	// ticked timeframe transitioned from developing to closed (the same
	// value for every plan on the instrument, whatever its evaluation
	// timeframe).
	JustClosedBar *Bar

	Metrics MetricsSnapshot
	Book    *BookSnapshot
}
