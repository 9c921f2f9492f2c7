package model

// PlanStatus is a node in the breakout lifecycle DAG:
//
//	PENDING -> BREAK_SEEN -> BREAK_CONFIRMED -> TRIGGERED
//	PENDING|BREAK_SEEN|BREAK_CONFIRMED -> INVALID
//	PENDING|BREAK_SEEN -> EXPIRED
//
// TRIGGERED, INVALID and EXPIRED are absorbing.
type PlanStatus string

const (
	StatusPending         PlanStatus = "PENDING"
	StatusBreakSeen       PlanStatus = "BREAK_SEEN"
	StatusBreakConfirmed  PlanStatus = "BREAK_CONFIRMED"
	StatusTriggered       PlanStatus = "TRIGGERED"
	StatusInvalid         PlanStatus = "INVALID"
	StatusExpired         PlanStatus = "EXPIRED"
)

// IsTerminal reports whether status is one of the absorbing states.
func (s PlanStatus) IsTerminal() bool {
	switch s {
	case StatusTriggered, StatusInvalid, StatusExpired:
		return true
	default:
		return false
	}
}

// PlanRuntime is the mutable lifecycle record for one plan. The zero value
// has an empty Status, not PENDING; Runtime.Admit starts a plan with
// Status set to StatusPending and no timestamps recorded.
type PlanRuntime struct {
	Status        PlanStatus
	BreakTs       int64 // market ts when PENDING->BREAK_SEEN fired, 0 if unset
	ArmedAt       int64 // market ts when BREAK_SEEN->BREAK_CONFIRMED fired
	TriggeredAt   int64 // market ts when BREAK_CONFIRMED->TRIGGERED fired
	InvalidReason string
	SignalEmitted bool

	// PendingSignal holds a terminal signal that has been constructed but
	// not yet durably emitted (a StoreError on the attempt, per spec §7's
	// retry policy): the plan stays in its terminal state and the
	// coordinator retries EmitIfNew for this signal on every subsequent
	// tick until it succeeds.
	PendingSignal *Signal

	// BreakLevel freezes the trigger level used at
	// PENDING->BREAK_SEEN, so later ticks (where extra_data could not have
	// changed, but arithmetic must stay stable) reuse the same threshold.
	BreakLevel float64

	// Break-bar metrics, captured once (on the tick where the bar that
	// produced the break closes) and frozen thereafter — confirmation
	// gates 2 and 3 read "the break-bar's RVOL"/"true range", a specific
	// historical bar, not whatever the current snapshot says once later
	// bars have closed.
	BreakBarCaptured   bool
	BreakBarRVOL       *float64
	BreakBarATR        *float64
	BreakBarNATR       *float64
	BreakBarTrueRange  float64
	BreakBarVolume     float64
	BreakBarClose      float64
	BreakBarPinbar     bool
	BreakBarPinbarSide Direction
	BreakBarDoji       bool

	// RetestArmed marks that price has re-entered the retest band at least
	// once (retest mode only); RetestPinbar records whether a pinbar
	// favoring the breakout direction appeared on that retest bar.
	RetestArmed  bool
	RetestPinbar bool
}

// TerminalStateName maps a terminal PlanStatus to the signal state name
// used on the wire ("triggered" | "invalid" | "expired").
func (s PlanStatus) TerminalStateName() string {
	switch s {
	case StatusTriggered:
		return "triggered"
	case StatusInvalid:
		return "invalid"
	case StatusExpired:
		return "expired"
	default:
		return ""
	}
}
