// Package model holds the data types shared across the breakout engine:
// bars, order-book snapshots, plans, runtime state, and signals.
package model

// Bar is a single OHLC candlestick for one instrument and timeframe.
// IsClosed distinguishes an immutable, history-eligible bar from a
// developing (still mutable) one — only closed bars feed indicators.
type Bar struct {
	InstrumentID string
	Timeframe    string
	TimestampMs  int64
	Open         float64
	High         float64
	Low          float64
	Close        float64
	VolumeBase   float64
	IsClosed     bool
}

// Valid reports whether the OHLC relationship and volume are consistent:
// low <= min(open,close) <= max(open,close) <= high, volume >= 0.
func (b Bar) Valid() bool {
	if b.VolumeBase < 0 {
		return false
	}
	lo := b.Open
	if b.Close < lo {
		lo = b.Close
	}
	hi := b.Open
	if b.Close > hi {
		hi = b.Close
	}
	return b.Low <= lo && lo <= hi && hi <= b.High
}

// TrueRange computes the true range of this bar given the previous closed
// bar's close (or 0/absent for the first bar, in which case it degrades to
// the high-low range).
func (b Bar) TrueRange(prevClose float64, havePrev bool) float64 {
	rangeHL := b.High - b.Low
	if !havePrev {
		return rangeHL
	}
	rangeHC := abs(b.High - prevClose)
	rangeLC := abs(b.Low - prevClose)
	tr := rangeHL
	if rangeHC > tr {
		tr = rangeHC
	}
	if rangeLC > tr {
		tr = rangeLC
	}
	return tr
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
