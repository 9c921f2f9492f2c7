// Package metrics computes ATR, NATR, RVOL, pinbar/doji classification and
// order-book sweep detection from a datastore.Snapshot, lazily, once per
// tick. ATR here is a simple moving average of true range, not Wilder's
// exponential smoothing, despite the name.
package metrics

import "breakoutengine/internal/model"

// trueRange computes the true range of bars[i] given bars[i-1] as the
// previous bar (i must be >= 1).
func trueRange(cur, prev model.Bar) float64 {
	return cur.TrueRange(prev.Close, true)
}

// atr computes the simple moving average of true range over the last
// `period` closed bars. Per spec §4.3/§8, this requires period+1 closed
// bars (period true-range values, each needing a predecessor).
func atr(closedBars []model.Bar, period int) (float64, bool) {
	if period < 1 || len(closedBars) < period+1 {
		return 0, false
	}
	n := len(closedBars)
	start := n - period
	var sum float64
	for i := start; i < n; i++ {
		sum += trueRange(closedBars[i], closedBars[i-1])
	}
	return sum / float64(period), true
}

// natr computes NATR% = 100 * atr / lastClose.
func natr(atrValue, lastClose float64) (float64, bool) {
	if lastClose <= 0 {
		return 0, false
	}
	return 100 * atrValue / lastClose, true
}
