package state

import (
	"math"

	"breakoutengine/internal/model"
)

// strengthScore implements spec §4.4's composite score, emitted only with
// triggered signals.
func strengthScore(rt model.PlanRuntime, plan model.Plan, params model.EffectiveParams, inputs model.TickInputs, retestMode bool) float64 {
	score := 30.0

	if rt.BreakBarRVOL != nil && *rt.BreakBarRVOL >= params.MinRVOL {
		v := math.Round((*rt.BreakBarRVOL - 1) * 10)
		if v > 25 {
			v = 25
		}
		score += v
	}

	if rt.BreakBarNATR != nil {
		natr := *rt.BreakBarNATR
		if natr >= params.ScoringVolatilityLow && natr <= params.ScoringVolatilityHigh {
			score += 25
		}
	}

	if retestMode && rt.RetestPinbar {
		score += 10
	}

	// Liquidity bonus: sweep favoring the plan's direction, with book
	// imbalance as a secondary confirmation when available (supplement,
	// SPEC_FULL.md §5) — an imbalance that contradicts the sweep drops the
	// bonus rather than awarding it on the sweep flag alone.
	if inputs.Metrics.SweepDetected && inputs.Metrics.SweepSide == plan.Direction {
		if inputs.Metrics.Imbalance == nil || imbalanceAgrees(*inputs.Metrics.Imbalance, plan.Direction) {
			score += 10
		}
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// imbalanceAgrees reports whether book imbalance (bidDepth-askDepth)/total
// favors direction: positive (more bid depth) favors long, negative favors
// short.
func imbalanceAgrees(imbalance float64, direction model.Direction) bool {
	if direction == model.DirectionShort {
		return imbalance <= 0
	}
	return imbalance >= 0
}
