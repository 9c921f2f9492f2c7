// Package state implements the per-plan breakout lifecycle state machine
// (spec §4.4): a pure function from (previous runtime, plan, tick inputs,
// effective parameters) to (next runtime, optional terminal signal) — a
// stateless step function driven by a stateful runtime registry.
package state

import (
	"math"
	"time"

	"breakoutengine/internal/model"
)

// Step evaluates one tick for one plan and returns the next runtime record
// plus a signal when a terminal transition occurred this tick. A prev that
// is already TRIGGERED/INVALID/EXPIRED is returned unchanged with no
// signal.
func Step(prev model.PlanRuntime, plan model.Plan, params model.EffectiveParams, inputs model.TickInputs) (model.PlanRuntime, *model.Signal) {
	if prev.Status.IsTerminal() {
		return prev, nil
	}

	rt := prev
	level, _ := plan.TriggerLevel()

	// 1) Pre-trigger invalidations (price/time), evaluated every tick
	// regardless of lifecycle position, fail-safe over confirmation.
	if newStatus, reason, fired := preInvalidation(rt.Status, plan, inputs); fired {
		rt.Status = newStatus
		rt.InvalidReason = reason
		return rt, terminalSignal(rt, plan, inputs)
	}

	// 2) Fakeout close, applicable once a break has been seen and before
	// trigger.
	if rt.Status == model.StatusBreakSeen || rt.Status == model.StatusBreakConfirmed {
		if fakeoutInvalidation(rt, plan, params, inputs) {
			rt.Status = model.StatusInvalid
			rt.InvalidReason = "fakeout_close"
			return rt, terminalSignal(rt, plan, inputs)
		}
	}

	switch rt.Status {
	case model.StatusPending:
		if !detectBreakSeen(plan, level, params, inputs) {
			return rt, nil
		}
		if !breakBarVolumeOK(params, inputs) {
			return rt, nil
		}
		rt.Status = model.StatusBreakSeen
		rt.BreakTs = inputs.MarketTs
		rt.BreakLevel = level
		captureBreakBar(&rt, inputs)
		// The confirmation gates are evaluated on the break tick itself, so
		// a break bar that already satisfies them confirms on the same tick.
		fallthrough

	case model.StatusBreakSeen:
		captureBreakBar(&rt, inputs)

		if confirmationWindowElapsed(rt, plan, params, inputs) {
			rt.Status = model.StatusInvalid
			rt.InvalidReason = "confirmation_failed"
			return rt, terminalSignal(rt, plan, inputs)
		}

		if !confirmationGatesPass(rt, plan, level, params, inputs) {
			return rt, nil
		}

		rt.ArmedAt = inputs.MarketTs
		if params.AllowRetestEntry {
			rt.Status = model.StatusBreakConfirmed
			return rt, nil
		}

		rt.Status = model.StatusTriggered
		rt.TriggeredAt = inputs.MarketTs
		return rt, terminalSignal(rt, plan, inputs, strengthOpt{score: strengthScore(rt, plan, params, inputs, false)})

	case model.StatusBreakConfirmed:
		return stepRetest(rt, plan, level, params, inputs)
	}

	return rt, nil
}

func stepRetest(rt model.PlanRuntime, plan model.Plan, level float64, params model.EffectiveParams, inputs model.TickInputs) (model.PlanRuntime, *model.Signal) {
	if !inputs.HasLastPrice {
		return rt, nil
	}
	isShort := plan.Direction == model.DirectionShort
	band := (params.RetestBandPct / 100.0) * level

	if !rt.RetestArmed {
		if math.Abs(inputs.LastPrice-level) > band {
			return rt, nil
		}
		rt.RetestArmed = true
		rt.RetestPinbar = inputs.Metrics.Pinbar && inputs.Metrics.PinbarSide == plan.Direction
		return rt, nil
	}

	resumed := false
	if isShort {
		resumed = inputs.LastPrice < level
	} else {
		resumed = inputs.LastPrice > level
	}
	if !resumed {
		return rt, nil
	}

	rt.Status = model.StatusTriggered
	rt.TriggeredAt = inputs.MarketTs
	return rt, terminalSignal(rt, plan, inputs, strengthOpt{score: strengthScore(rt, plan, params, inputs, true)})
}

// captureBreakBar freezes break-bar metrics the first time a closed bar
// arrives while the plan is at or entering BREAK_SEEN (spec §4.4 gates 2
// and 3 reference "the break-bar's" RVOL/true range, not the current
// snapshot once later bars have closed).
func captureBreakBar(rt *model.PlanRuntime, inputs model.TickInputs) {
	if rt.BreakBarCaptured || inputs.JustClosedBar == nil {
		return
	}
	m := inputs.Metrics
	rt.BreakBarCaptured = true
	rt.BreakBarRVOL = m.RVOL
	rt.BreakBarATR = m.ATR
	rt.BreakBarNATR = m.NATRPct
	rt.BreakBarTrueRange = m.ClosedBarTrueRange
	rt.BreakBarVolume = m.ClosedBarVolume
	rt.BreakBarClose = m.ClosedBarClose
	rt.BreakBarPinbar = m.Pinbar
	rt.BreakBarPinbarSide = m.PinbarSide
	rt.BreakBarDoji = m.Doji
}

type strengthOpt struct {
	score float64
}

// terminalSignal builds the wire Signal for a just-reached terminal state.
// score is only meaningful (and only passed) for TRIGGERED.
func terminalSignal(rt model.PlanRuntime, plan model.Plan, inputs model.TickInputs, score ...strengthOpt) *model.Signal {
	sig := &model.Signal{
		PlanID:          plan.ID,
		State:           rt.Status.TerminalStateName(),
		TimestampMs:     inputs.MarketTs,
		LastPrice:       inputs.LastPrice,
		ProtocolVersion: model.ProtocolVersion,
		Runtime: model.SignalRuntime{
			ArmedAt:       msPtrToISO(rt.ArmedAt),
			TriggeredAt:   msPtrToISO(rt.TriggeredAt),
			InvalidReason: strPtrOrNil(rt.InvalidReason),
		},
		Metrics: model.SignalMetrics{
			RVOL:    inputs.Metrics.RVOL,
			NATRPct: inputs.Metrics.NATRPct,
			ATR:     inputs.Metrics.ATR,
			Pinbar:  inputs.Metrics.Pinbar,
		},
	}
	if len(score) > 0 {
		sig.StrengthScore = int(math.Round(score[0].score))
	}
	return sig
}

func msPtrToISO(ms int64) *string {
	if ms == 0 {
		return nil
	}
	s := time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
	return &s
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
