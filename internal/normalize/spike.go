package normalize

import "breakoutengine/internal/apperrors"

// CheckSpike implements the spike filter: if last_price and atr are both
// available, a candle whose |close-last_price| exceeds atr_multiplier*atr
// is rejected. If atr is unavailable, the fallback percentage filter
// applies instead. Returns a *apperrors.PriceSpikeError when the bar
// should be dropped, nil otherwise.
func CheckSpike(instrumentID string, close, lastPrice float64, hasLastPrice bool, atr float64, hasATR bool, atrMultiplier, fallbackPct float64) error {
	if !hasLastPrice {
		return nil
	}

	delta := close - lastPrice
	if delta < 0 {
		delta = -delta
	}

	if hasATR && atr > 0 {
		threshold := atrMultiplier * atr
		if delta > threshold {
			return &apperrors.PriceSpikeError{
				InstrumentID: instrumentID,
				LastPrice:    lastPrice,
				Close:        close,
				Threshold:    threshold,
			}
		}
		return nil
	}

	threshold := fallbackPct * lastPrice
	if delta > threshold {
		return &apperrors.PriceSpikeError{
			InstrumentID: instrumentID,
			LastPrice:    lastPrice,
			Close:        close,
			Threshold:    threshold,
		}
	}
	return nil
}
