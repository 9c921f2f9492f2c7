package state

import (
	"sync"

	"breakoutengine/internal/model"
)

// Runtime tracks the admitted plans and their lifecycle state for one
// instrument: a registration/dispatch registry where each admitted plan is
// stepped through the pure Step function rather than an object with
// mutable internals.
type Runtime struct {
	mu    sync.Mutex
	plans map[string]entry
	order []string // admission order, per spec §4.8 step 4
}

type entry struct {
	plan  model.Plan
	rt    model.PlanRuntime
	extra planExtra
}

// planExtra carries the per-plan effective params so callers don't have to
// re-resolve them on every tick (Config Resolver output is a frozen record,
// per spec §9). The record is replaced only when the plan is re-admitted; a
// later change to a global or instrument layer does not refresh it.
type planExtra struct {
	params model.EffectiveParams
}

// NewRuntime creates an empty per-instrument plan runtime.
func NewRuntime() *Runtime {
	return &Runtime{plans: make(map[string]entry)}
}

// Admit registers a plan with its resolved effective parameters. Re-admitting
// an existing plan ID replaces its params but preserves its current runtime
// state.
func (r *Runtime) Admit(plan model.Plan, params model.EffectiveParams) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.plans[plan.ID]; ok {
		e.plan = plan
		e.extra.params = params
		r.plans[plan.ID] = e
		return
	}
	r.plans[plan.ID] = entry{plan: plan, rt: model.PlanRuntime{Status: model.StatusPending}, extra: planExtra{params: params}}
	r.order = append(r.order, plan.ID)
}

// Remove drops a plan and its runtime record from the runtime.
func (r *Runtime) Remove(planID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.plans, planID)
	for i, id := range r.order {
		if id == planID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// StepAll runs Step for every admitted, non-terminal plan bound to this
// instrument, in admission order (spec §4.8 step 4), and returns the
// signals produced this tick. A signal produced here is also recorded on
// the plan's runtime as PendingSignal until the caller confirms durable
// emission via MarkEmitted, so a StoreError on this tick's attempt is
// retried on a later one instead of being dropped.
func (r *Runtime) StepAll(inputs model.TickInputs) []model.Signal {
	r.mu.Lock()
	defer r.mu.Unlock()

	var signals []model.Signal
	for _, id := range r.order {
		e, ok := r.plans[id]
		if !ok || e.rt.Status.IsTerminal() {
			continue
		}
		nextRt, sig := Step(e.rt, e.plan, e.extra.params, inputs)
		if sig != nil {
			s := *sig
			nextRt.PendingSignal = &s
		}
		e.rt = nextRt
		r.plans[id] = e
		if sig != nil {
			signals = append(signals, *sig)
		}
	}
	return signals
}

// PendingSignals returns every currently unemitted terminal signal across
// admitted plans (new ones produced by the last StepAll call and older ones
// still awaiting a successful emit after a prior StoreError), in admission
// order.
func (r *Runtime) PendingSignals() []model.Signal {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []model.Signal
	for _, id := range r.order {
		e, ok := r.plans[id]
		if !ok || e.rt.PendingSignal == nil {
			continue
		}
		out = append(out, *e.rt.PendingSignal)
	}
	return out
}

// PlanState returns the current runtime record for one plan.
func (r *Runtime) PlanState(planID string) (model.PlanRuntime, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.plans[planID]
	return e.rt, ok
}

// MarkEmitted sets SignalEmitted on a plan's runtime once its terminal
// signal has been durably emitted (or confirmed a duplicate), and clears
// PendingSignal so it stops being retried. The plan's terminal status is
// what keeps StepAll from stepping it again; the Emitter's dedup key is
// what keeps a signal from being stored twice.
func (r *Runtime) MarkEmitted(planID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.plans[planID]; ok {
		e.rt.SignalEmitted = true
		e.rt.PendingSignal = nil
		r.plans[planID] = e
	}
}

// Plans returns the admitted plan IDs in admission order.
func (r *Runtime) Plans() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
