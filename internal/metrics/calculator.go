package metrics

import (
	"breakoutengine/internal/datastore"
	"breakoutengine/internal/model"
)

// Calculate derives a MetricsSnapshot from a data store snapshot for one
// instrument. It never mutates the store and is safe to call repeatedly —
// every value is recomputed from the closed-bar/volume history each time
// (spec §4.3: "all metrics are derived lazily per call").
func Calculate(snap datastore.Snapshot, params model.EffectiveParams) model.MetricsSnapshot {
	out := model.MetricsSnapshot{}

	if len(snap.ClosedBars) == 0 {
		ob := evaluateOrderBook(snap.Book, snap.PrevBook, params.MinDepthLevels, params.DepletionThreshold)
		out.HasBook = ob.HasBook
		out.SweepDetected = ob.SweepDetected
		out.SweepSide = ob.SweepSide
		if ob.HasImbalance {
			imb := ob.Imbalance
			out.Imbalance = &imb
		}
		return out
	}

	last := snap.ClosedBars[len(snap.ClosedBars)-1]
	out.Timestamp = last.TimestampMs
	out.HasClosedBar = true
	out.ClosedBarOpen = last.Open
	out.ClosedBarHigh = last.High
	out.ClosedBarLow = last.Low
	out.ClosedBarClose = last.Close
	out.ClosedBarVolume = last.VolumeBase

	if len(snap.ClosedBars) >= 2 {
		out.ClosedBarTrueRange = trueRange(last, snap.ClosedBars[len(snap.ClosedBars)-2])
	} else {
		out.ClosedBarTrueRange = last.High - last.Low
	}

	if atrValue, ok := atr(snap.ClosedBars, params.ATRPeriod); ok {
		out.ATR = &atrValue
		if natrValue, ok := natr(atrValue, last.Close); ok {
			out.NATRPct = &natrValue
		}
	}

	if rvolValue, ok := rvol(snap.VolumeHistory, params.RVOLPeriod); ok {
		out.RVOL = &rvolValue
	}

	cs := classifyCandle(last, params.DojiThreshold)
	out.Pinbar = cs.IsPinbar
	out.PinbarSide = cs.PinbarSide
	out.Doji = cs.IsDoji

	ob := evaluateOrderBook(snap.Book, snap.PrevBook, params.MinDepthLevels, params.DepletionThreshold)
	out.HasBook = ob.HasBook
	out.SweepDetected = ob.SweepDetected
	out.SweepSide = ob.SweepSide
	if ob.HasImbalance {
		imb := ob.Imbalance
		out.Imbalance = &imb
	}

	return out
}
