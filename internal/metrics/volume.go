package metrics

// rvol computes relative volume: the latest closed bar's volume divided by
// the mean of the `period` volumes immediately preceding it. Requires
// period+1 entries in volumeHistory (the current bar's volume plus period
// prior ones), matching spec §4.3/§8's boundary.
func rvol(volumeHistory []float64, period int) (float64, bool) {
	if period < 1 || len(volumeHistory) < period+1 {
		return 0, false
	}
	n := len(volumeHistory)
	current := volumeHistory[n-1]
	window := volumeHistory[n-1-period : n-1]

	var sum float64
	for _, v := range window {
		sum += v
	}
	mean := sum / float64(period)
	if mean <= 0 {
		return 0, false
	}
	return current / mean, true
}
