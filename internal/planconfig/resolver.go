package planconfig

import (
	"breakoutengine/internal/apperrors"
	"breakoutengine/internal/model"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Merge produces a frozen model.EffectiveParams by starting from the
// default-tagged zero value of model.EffectiveParams and applying global,
// then instrument, then plan layers in that order — last-write-wins per
// leaf (spec §4.5). Any nil layer is skipped entirely.
func Merge(global, instrument, plan *ParamLayer) (model.EffectiveParams, error) {
	out := model.EffectiveParams{}
	if err := defaults.Set(&out); err != nil {
		return model.EffectiveParams{}, &apperrors.ConfigValidationError{Message: "defaults: " + err.Error()}
	}

	for _, layer := range []*ParamLayer{global, instrument, plan} {
		applyLayer(&out, layer)
	}

	if err := validate.Struct(out); err != nil {
		return model.EffectiveParams{}, toConfigError(err)
	}
	return out, nil
}

func applyLayer(out *model.EffectiveParams, layer *ParamLayer) {
	if layer == nil {
		return
	}
	if b := layer.Breakout; b != nil {
		setF(&out.PenetrationPct, b.PenetrationPct)
		setF(&out.PenetrationNATRMult, b.PenetrationNATRMult)
		setF(&out.MinRVOL, b.MinRVOL)
		setB(&out.ConfirmClose, b.ConfirmClose)
		setI64(&out.ConfirmTimeMs, b.ConfirmTimeMs)
		setB(&out.AllowRetestEntry, b.AllowRetestEntry)
		setF(&out.RetestBandPct, b.RetestBandPct)
		setB(&out.FakeoutCloseInvalidate, b.FakeoutCloseInvalidate)
		setB(&out.ObSweepCheck, b.ObSweepCheck)
		setF(&out.MinBreakRangeATR, b.MinBreakRangeATR)
	}
	if a := layer.ATR; a != nil {
		setI(&out.ATRPeriod, a.Period)
	}
	if v := layer.Volume; v != nil {
		setI(&out.RVOLPeriod, v.RVOLPeriod)
		setF(&out.MinVolumeThreshold, v.MinVolumeThreshold)
	}
	if o := layer.OrderBook; o != nil {
		setF(&out.ImbalanceThreshold, o.ImbalanceThreshold)
		setF(&out.DepletionThreshold, o.DepletionThreshold)
		setI(&out.MinDepthLevels, o.MinDepthLevels)
	}
	if t := layer.Time; t != nil {
		setS(&out.EvaluationTimeframe, t.EvaluationTimeframe)
	}
	if sc := layer.Scoring; sc != nil {
		setF(&out.ScoringVolatilityLow, sc.VolatilityLow)
		setF(&out.ScoringVolatilityHigh, sc.VolatilityHigh)
	}
	if sf := layer.SpikeFilter; sf != nil {
		setB(&out.SpikeFilterEnable, sf.Enable)
		setF(&out.SpikeATRMultiplier, sf.ATRMultiplier)
		setF(&out.SpikeFallbackPct, sf.FallbackPct)
	}
	if c := layer.Candle; c != nil {
		setF(&out.DojiThreshold, c.DojiThreshold)
	}
}

func setF(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setI(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setI64(dst *int64, src *int64) {
	if src != nil {
		*dst = *src
	}
}

func setB(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setS(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func toConfigError(err error) error {
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		fe := verrs[0]
		return &apperrors.ConfigValidationError{Field: fe.Namespace(), Message: fe.Tag()}
	}
	return &apperrors.ConfigValidationError{Message: err.Error()}
}
