package state

import "breakoutengine/internal/model"

// preInvalidation checks the plan's own invalidation_conditions against the
// current tick. Conditions are evaluated in list order and the first match
// wins. time_limit yields EXPIRED (only reachable from PENDING/BREAK_SEEN);
// price_above/price_below yield INVALID.
func preInvalidation(status model.PlanStatus, plan model.Plan, inputs model.TickInputs) (model.PlanStatus, string, bool) {
	for _, cond := range plan.Extra.InvalidationConditions {
		switch cond.Type {
		case model.ConditionTimeLimit:
			if status != model.StatusPending && status != model.StatusBreakSeen {
				continue
			}
			if cond.DurationSeconds == nil {
				continue
			}
			elapsedMs := inputs.MarketTs - plan.CreatedAtMs
			if elapsedMs > *cond.DurationSeconds*1000 {
				return model.StatusExpired, "time_limit", true
			}
		case model.ConditionPriceAbove:
			if !inputs.HasLastPrice || cond.Level == nil {
				continue
			}
			if inputs.LastPrice > *cond.Level {
				return model.StatusInvalid, "price_above", true
			}
		case model.ConditionPriceBelow:
			if !inputs.HasLastPrice || cond.Level == nil {
				continue
			}
			if inputs.LastPrice < *cond.Level {
				return model.StatusInvalid, "price_below", true
			}
		}
	}
	return status, "", false
}

// fakeoutInvalidation checks whether a closed bar arriving between
// BREAK_SEEN and TRIGGERED closes back on the pre-break side of the frozen
// break level (spec §4.4).
func fakeoutInvalidation(rt model.PlanRuntime, plan model.Plan, params model.EffectiveParams, inputs model.TickInputs) bool {
	if !params.FakeoutCloseInvalidate {
		return false
	}
	if inputs.JustClosedBar == nil {
		return false
	}
	isShort := plan.Direction == model.DirectionShort
	closePrice := inputs.JustClosedBar.Close
	if isShort {
		return closePrice > rt.BreakLevel
	}
	return closePrice < rt.BreakLevel
}
