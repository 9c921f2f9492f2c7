package model

// EffectiveParams is the frozen, merged parameter record produced by the
// Config Resolver for one plan evaluation (global <- instrument <- plan
// layers, last-write-wins per leaf).
type EffectiveParams struct {
	PenetrationPct         float64 `json:"penetration_pct" default:"0.05" validate:"gte=0,lte=1"`
	PenetrationNATRMult    float64 `json:"penetration_natr_mult" default:"0.25" validate:"gte=0"`
	MinRVOL                float64 `json:"min_rvol" default:"1.5" validate:"gte=0"`
	ConfirmClose           bool    `json:"confirm_close" default:"true"`
	ConfirmTimeMs          int64   `json:"confirm_time_ms" default:"750" validate:"gt=0"`
	AllowRetestEntry       bool    `json:"allow_retest_entry" default:"false"`
	RetestBandPct          float64 `json:"retest_band_pct" default:"0.03" validate:"gte=0,lte=1"`
	FakeoutCloseInvalidate bool    `json:"fakeout_close_invalidate" default:"true"`
	ObSweepCheck           bool    `json:"ob_sweep_check" default:"true"`
	MinBreakRangeATR       float64 `json:"min_break_range_atr" default:"0.5" validate:"gte=0"`

	EvaluationTimeframe string `json:"evaluation_timeframe" default:"1m" validate:"required"`

	ATRPeriod           int     `json:"atr_period" default:"14" validate:"gte=2"`
	RVOLPeriod          int     `json:"rvol_period" default:"20" validate:"gte=1"`
	MinVolumeThreshold  float64 `json:"min_volume_threshold" default:"1000" validate:"gte=0"`

	SpikeFilterEnable  bool    `json:"spike_filter_enable" default:"true"`
	SpikeATRMultiplier float64 `json:"spike_atr_multiplier" default:"10" validate:"gte=0"`
	SpikeFallbackPct   float64 `json:"spike_fallback_pct" default:"0.5" validate:"gte=0,lte=1"`

	ImbalanceThreshold  float64 `json:"imbalance_threshold" default:"0.3" validate:"gte=0,lte=1"`
	DepletionThreshold  float64 `json:"depletion_threshold" default:"0.3" validate:"gte=0,lte=1"`
	MinDepthLevels      int     `json:"min_depth_levels" default:"3" validate:"gte=1"`

	DojiThreshold float64 `json:"doji_threshold" default:"0.1" validate:"gte=0,lte=1"`

	ScoringVolatilityLow  float64 `json:"scoring_volatility_low" default:"0.5" validate:"gte=0"`
	ScoringVolatilityHigh float64 `json:"scoring_volatility_high" default:"5.0" validate:"gte=0"`
}
