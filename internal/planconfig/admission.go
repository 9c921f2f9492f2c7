package planconfig

import (
	"encoding/json"

	"breakoutengine/internal/apperrors"
	"breakoutengine/internal/model"
)

// AdmitPlan validates an incoming plan against the struct-tag rules on
// model.Plan/model.InvalidationCondition and the one rule those tags can't
// express: spec §4.4 requires a usable trigger level, which depends on
// whether extra_data.entry_params.level overrides entry_price.
func AdmitPlan(plan model.Plan) error {
	if err := validate.Struct(plan); err != nil {
		return toConfigError(err)
	}
	if _, ok := plan.TriggerLevel(); !ok {
		return &apperrors.ConfigValidationError{
			Field:   "entry_price",
			Message: "no usable trigger level: entry_price and extra_data.entry_params.level are both unset or non-positive",
		}
	}
	return nil
}

// PlanLayer parses a plan's extra_data.breakout_params into the Config
// Resolver's plan-precedence ParamLayer (spec §4.5's third merge layer,
// spec §6's Plan admission JSON). A plan with no breakout_params set
// contributes no overrides.
func PlanLayer(plan model.Plan) (*ParamLayer, error) {
	if len(plan.Extra.BreakoutParams) == 0 {
		return nil, nil
	}
	var overrides BreakoutOverrides
	if err := json.Unmarshal(plan.Extra.BreakoutParams, &overrides); err != nil {
		return nil, &apperrors.ConfigValidationError{
			Field:   "extra_data.breakout_params",
			Message: "invalid breakout params: " + err.Error(),
		}
	}
	if err := validate.Struct(overrides); err != nil {
		return nil, toConfigError(err)
	}
	return &ParamLayer{Breakout: &overrides}, nil
}
