package model

// BookLevel is a single price/size level in an order book snapshot.
type BookLevel struct {
	Price float64
	Size  float64
}

// BookSnapshot is a normalized order-book snapshot for one instrument.
// Bids must be sorted descending by price, asks ascending.
type BookSnapshot struct {
	InstrumentID string
	TimestampMs  int64
	Bids         []BookLevel
	Asks         []BookLevel
}

// BestBid returns the highest bid level, or the zero level and false if
// there are no bids.
func (s BookSnapshot) BestBid() (BookLevel, bool) {
	if len(s.Bids) == 0 {
		return BookLevel{}, false
	}
	return s.Bids[0], true
}

// BestAsk returns the lowest ask level, or the zero level and false if
// there are no asks.
func (s BookSnapshot) BestAsk() (BookLevel, bool) {
	if len(s.Asks) == 0 {
		return BookLevel{}, false
	}
	return s.Asks[0], true
}

// Mid returns the mid price between best bid and best ask, or (0, false)
// if either side is empty.
func (s BookSnapshot) Mid() (float64, bool) {
	bid, ok := s.BestBid()
	if !ok {
		return 0, false
	}
	ask, ok := s.BestAsk()
	if !ok {
		return 0, false
	}
	return (bid.Price + ask.Price) / 2, true
}

// DepthN sums size across the top n levels of bids and asks.
func (s BookSnapshot) DepthN(n int) (bidDepth, askDepth float64) {
	for i := 0; i < n && i < len(s.Bids); i++ {
		bidDepth += s.Bids[i].Size
	}
	for i := 0; i < n && i < len(s.Asks); i++ {
		askDepth += s.Asks[i].Size
	}
	return bidDepth, askDepth
}

// Imbalance returns (bidDepth-askDepth)/(bidDepth+askDepth) over the top n
// levels. Returns (0, false) if both sides are empty.
func (s BookSnapshot) Imbalance(n int) (float64, bool) {
	bidDepth, askDepth := s.DepthN(n)
	total := bidDepth + askDepth
	if total <= 0 {
		return 0, false
	}
	return (bidDepth - askDepth) / total, true
}

// BidsDescending reports whether bid levels are sorted by descending
// price; equal adjacent prices are accepted.
func BidsDescending(levels []BookLevel) bool {
	for i := 1; i < len(levels); i++ {
		if levels[i].Price > levels[i-1].Price {
			return false
		}
	}
	return true
}

// AsksAscending reports whether ask levels are sorted by ascending price;
// equal adjacent prices are accepted.
func AsksAscending(levels []BookLevel) bool {
	for i := 1; i < len(levels); i++ {
		if levels[i].Price < levels[i-1].Price {
			return false
		}
	}
	return true
}
