package metrics

import "breakoutengine/internal/model"

// CandleStructure describes the pinbar/doji classification of one closed
// bar.
type CandleStructure struct {
	Body       float64
	UpperWick  float64
	LowerWick  float64
	Range      float64
	IsPinbar   bool
	PinbarSide model.Direction // meaningful only if IsPinbar
	IsDoji     bool
}

// classifyCandle computes body/wick structure and the pinbar/doji flags for
// one closed bar. A pinbar requires body <= 0.33*range and one wick
// >= 2*body while the opposite wick <= body; the long-wick side determines
// direction — a long lower wick is bullish (rejection of downside), a long
// upper wick is bearish.
func classifyCandle(b model.Bar, dojiThreshold float64) CandleStructure {
	body := abs(b.Close - b.Open)
	rng := b.High - b.Low

	upper := b.High - max(b.Open, b.Close)
	lower := min(b.Open, b.Close) - b.Low

	cs := CandleStructure{Body: body, UpperWick: upper, LowerWick: lower, Range: rng}

	if rng <= 0 {
		return cs
	}

	if body <= 0.33*rng {
		switch {
		case lower >= 2*body && upper <= body:
			cs.IsPinbar = true
			cs.PinbarSide = model.DirectionLong // long lower wick: bullish pinbar
		case upper >= 2*body && lower <= body:
			cs.IsPinbar = true
			cs.PinbarSide = model.DirectionShort // long upper wick: bearish pinbar
		}
	}

	if body <= dojiThreshold*rng {
		cs.IsDoji = true
	}

	return cs
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
