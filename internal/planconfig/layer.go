// Package planconfig implements the Config Resolver (spec §4.5): merging
// global, instrument, and plan parameter layers into a frozen
// model.EffectiveParams record, and validating both plan admission and
// merged configs, pairing github.com/creasty/defaults with
// github.com/go-playground/validator/v10.
package planconfig

// ParamLayer is one override layer (global defaults, an instrument's
// overrides, or a plan's extra_data.breakout_params), mirroring the
// section names of the configuration file layout in spec §6. Every leaf is
// a pointer so "not set at this layer" is distinguishable from "explicitly
// zero" — last-write-wins per leaf across layers.
type ParamLayer struct {
	Breakout    *BreakoutOverrides    `json:"breakout_params,omitempty"`
	ATR         *ATROverrides         `json:"atr_params,omitempty"`
	Volume      *VolumeOverrides      `json:"volume_params,omitempty"`
	OrderBook   *OrderBookOverrides   `json:"orderbook_params,omitempty"`
	Time        *TimeOverrides        `json:"time_params,omitempty"`
	Scoring     *ScoringOverrides     `json:"scoring_params,omitempty"`
	SpikeFilter *SpikeFilterOverrides `json:"spike_filter,omitempty"`
	// Candle is a supplemented parameter section with no equivalent in
	// §6's listed sections.
	Candle *CandleOverrides `json:"candle_params,omitempty"`
}

type BreakoutOverrides struct {
	PenetrationPct         *float64 `json:"penetration_pct,omitempty" validate:"omitempty,gte=0,lte=1"`
	PenetrationNATRMult    *float64 `json:"penetration_natr_mult,omitempty" validate:"omitempty,gte=0"`
	MinRVOL                *float64 `json:"min_rvol,omitempty" validate:"omitempty,gte=0"`
	ConfirmClose           *bool    `json:"confirm_close,omitempty"`
	ConfirmTimeMs          *int64   `json:"confirm_time_ms,omitempty" validate:"omitempty,gt=0"`
	AllowRetestEntry       *bool    `json:"allow_retest_entry,omitempty"`
	RetestBandPct          *float64 `json:"retest_band_pct,omitempty" validate:"omitempty,gte=0,lte=1"`
	FakeoutCloseInvalidate *bool    `json:"fakeout_close_invalidate,omitempty"`
	ObSweepCheck           *bool    `json:"ob_sweep_check,omitempty"`
	MinBreakRangeATR       *float64 `json:"min_break_range_atr,omitempty" validate:"omitempty,gte=0"`
}

type ATROverrides struct {
	Period *int `json:"period,omitempty" validate:"omitempty,gte=2"`
}

type VolumeOverrides struct {
	RVOLPeriod         *int     `json:"rvol_period,omitempty" validate:"omitempty,gte=1"`
	MinVolumeThreshold *float64 `json:"min_volume_threshold,omitempty" validate:"omitempty,gte=0"`
}

type OrderBookOverrides struct {
	ImbalanceThreshold *float64 `json:"imbalance_threshold,omitempty" validate:"omitempty,gte=0,lte=1"`
	DepletionThreshold *float64 `json:"depletion_threshold,omitempty" validate:"omitempty,gte=0,lte=1"`
	MinDepthLevels     *int     `json:"min_depth_levels,omitempty" validate:"omitempty,gte=1"`
}

type TimeOverrides struct {
	EvaluationTimeframe *string `json:"evaluation_timeframe,omitempty"`
}

type ScoringOverrides struct {
	VolatilityLow  *float64 `json:"volatility_low,omitempty" validate:"omitempty,gte=0"`
	VolatilityHigh *float64 `json:"volatility_high,omitempty" validate:"omitempty,gte=0"`
}

type SpikeFilterOverrides struct {
	Enable        *bool    `json:"enable,omitempty"`
	ATRMultiplier *float64 `json:"atr_multiplier,omitempty" validate:"omitempty,gte=0"`
	FallbackPct   *float64 `json:"fallback_pct,omitempty" validate:"omitempty,gte=0,lte=1"`
}

type CandleOverrides struct {
	DojiThreshold *float64 `json:"doji_threshold,omitempty" validate:"omitempty,gte=0,lte=1"`
}
