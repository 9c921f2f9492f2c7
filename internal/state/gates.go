package state

import "breakoutengine/internal/model"

// penetrationDistance returns the volatility-aware breakout distance from
// level: the greater of a flat percentage of level and an NATR-scaled
// distance (spec §4.4). penetration_pct and natr_pct are both stored as
// percentage numbers (e.g. 0.05 means 0.05%), matching NATRPct's own
// (ATR/close)*100 scale, so both branches divide by 100 before scaling by
// level — confirmed against spec §8 scenario 1's worked numbers (L=100,
// penetration_pct=0.05 ⇒ threshold 0.05, not 5.0).
func penetrationDistance(level float64, params model.EffectiveParams, natrPct *float64) float64 {
	flat := (params.PenetrationPct / 100.0) * level
	vol := 0.0
	if natrPct != nil {
		vol = params.PenetrationNATRMult * (*natrPct / 100.0) * level
	}
	if vol > flat {
		return vol
	}
	return flat
}

// detectBreakSeen reports whether price has penetrated level by at least
// the configured threshold in the plan's direction, using whichever of
// last_price / the developing bar's favorable extreme reaches furthest.
func detectBreakSeen(plan model.Plan, level float64, params model.EffectiveParams, inputs model.TickInputs) bool {
	isShort := plan.Direction == model.DirectionShort
	var natrPct *float64
	if inputs.Metrics.HasClosedBar {
		natrPct = inputs.Metrics.NATRPct
	}
	dist := penetrationDistance(level, params, natrPct)

	candidate, ok := candidatePrice(isShort, inputs)
	if !ok {
		return false
	}

	if isShort {
		return candidate < level-dist
	}
	return candidate > level+dist
}

func candidatePrice(isShort bool, inputs model.TickInputs) (float64, bool) {
	var candidate float64
	have := false
	if inputs.HasLastPrice {
		candidate = inputs.LastPrice
		have = true
	}
	if inputs.HasDeveloping {
		if isShort {
			if !have || inputs.DevelopingLow < candidate {
				candidate = inputs.DevelopingLow
			}
		} else {
			if !have || inputs.DevelopingHigh > candidate {
				candidate = inputs.DevelopingHigh
			}
		}
		have = true
	}
	return candidate, have
}

// breakBarVolumeOK enforces the minimum-volume requirement on the break-bar
// once it is closed (spec §4.4, PENDING->BREAK_SEEN).
func breakBarVolumeOK(params model.EffectiveParams, inputs model.TickInputs) bool {
	if inputs.JustClosedBar == nil {
		return true
	}
	return inputs.JustClosedBar.VolumeBase >= params.MinVolumeThreshold
}

// closeOrTimeConfirmed implements gate 1 of BREAK_SEEN->BREAK_CONFIRMED.
func closeOrTimeConfirmed(rt model.PlanRuntime, plan model.Plan, level float64, params model.EffectiveParams, inputs model.TickInputs) bool {
	isShort := plan.Direction == model.DirectionShort

	if params.ConfirmClose {
		if !rt.BreakBarCaptured {
			return false
		}
		dist := penetrationDistance(level, params, rt.BreakBarNATR)
		if isShort {
			return rt.BreakBarClose < level-dist
		}
		return rt.BreakBarClose > level+dist
	}

	if rt.BreakTs == 0 {
		return false
	}
	elapsed := inputs.MarketTs - rt.BreakTs
	if elapsed < params.ConfirmTimeMs {
		return false
	}
	if !inputs.HasLastPrice {
		return false
	}
	if isShort {
		return inputs.LastPrice <= level
	}
	return inputs.LastPrice >= level
}

// volumeGate implements gate 2 (break-bar RVOL >= min_rvol).
func volumeGate(rt model.PlanRuntime, params model.EffectiveParams) bool {
	if params.MinRVOL <= 0 {
		return true
	}
	if rt.BreakBarRVOL == nil {
		return false
	}
	return *rt.BreakBarRVOL >= params.MinRVOL
}

// rangeGate implements gate 3 (break-bar true range >= min_break_range_atr *
// ATR). A doji break bar (small body relative to range) disqualifies the
// gate outright regardless of raw range, matching
// ta2_app/metrics/candle_structure.py's doji_threshold semantics (supplement,
// SPEC_FULL.md §5).
func rangeGate(rt model.PlanRuntime, params model.EffectiveParams) bool {
	if params.MinBreakRangeATR <= 0 {
		return true
	}
	if rt.BreakBarDoji {
		return false
	}
	if rt.BreakBarATR == nil {
		return false
	}
	return rt.BreakBarTrueRange >= params.MinBreakRangeATR*(*rt.BreakBarATR)
}

// sweepGate implements gate 4: the latest sweep signal must favor the
// plan's direction. An absent book fails closed (spec §9 open question).
func sweepGate(plan model.Plan, params model.EffectiveParams, inputs model.TickInputs) bool {
	if !params.ObSweepCheck {
		return true
	}
	if !inputs.Metrics.SweepDetected {
		return false
	}
	return inputs.Metrics.SweepSide == plan.Direction
}

// confirmationGatesPass runs all four BREAK_SEEN->BREAK_CONFIRMED gates.
func confirmationGatesPass(rt model.PlanRuntime, plan model.Plan, level float64, params model.EffectiveParams, inputs model.TickInputs) bool {
	return closeOrTimeConfirmed(rt, plan, level, params, inputs) &&
		volumeGate(rt, params) &&
		rangeGate(rt, params) &&
		sweepGate(plan, params, inputs)
}

// confirmationWindowElapsed reports whether the confirmation window from
// break_ts has elapsed without the volume or sweep gate being satisfiable —
// spec §4.4's "confirmation_failed" invalidation scopes this explicitly to
// those two gates, not the range gate.
func confirmationWindowElapsed(rt model.PlanRuntime, plan model.Plan, params model.EffectiveParams, inputs model.TickInputs) bool {
	if rt.BreakTs == 0 || params.ConfirmTimeMs <= 0 {
		return false
	}
	elapsed := inputs.MarketTs - rt.BreakTs
	if elapsed < params.ConfirmTimeMs {
		return false
	}
	return !volumeGate(rt, params) || !sweepGate(plan, params, inputs)
}
