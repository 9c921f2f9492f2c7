package model

import "encoding/json"

// Direction is the trade direction a breakout plan is watching for.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// ConditionType names the kind of invalidation condition attached to a plan.
type ConditionType string

const (
	ConditionPriceAbove ConditionType = "price_above"
	ConditionPriceBelow ConditionType = "price_below"
	ConditionTimeLimit  ConditionType = "time_limit"
)

// InvalidationCondition is one entry of extra_data.invalidation_conditions.
type InvalidationCondition struct {
	Type            ConditionType `json:"type" validate:"required,oneof=price_above price_below time_limit"`
	Level           *float64      `json:"level,omitempty" validate:"required_if=Type price_above,required_if=Type price_below"`
	DurationSeconds *int64        `json:"duration_seconds,omitempty" validate:"required_if=Type time_limit,omitempty,gt=0"`
}

// EntryParams overrides the breakout trigger level.
type EntryParams struct {
	Level *float64 `json:"level,omitempty"`
}

// ExtraData is the freeform bundle attached to a plan at admission.
type ExtraData struct {
	EntryParams           *EntryParams             `json:"entry_params,omitempty"`
	InvalidationConditions []InvalidationCondition `json:"invalidation_conditions,omitempty" validate:"dive"`
	BreakoutParams         json.RawMessage         `json:"breakout_params,omitempty"`
}

// Plan is an admitted breakout plan, immutable after admission.
type Plan struct {
	ID           string    `json:"id" validate:"required"`
	InstrumentID string    `json:"instrument_id" validate:"required"`
	Direction    Direction `json:"direction" validate:"required,oneof=long short"`
	EntryType    string    `json:"entry_type" validate:"required,eq=breakout"`
	EntryPrice   float64   `json:"entry_price" validate:"required,gt=0"`
	CreatedAtMs  int64     `json:"created_at" validate:"required"`
	Extra        ExtraData `json:"extra_data"`
}

// TriggerLevel returns extra_data.entry_params.level if present, else
// entry_price. ok is false only if neither is a usable positive level.
func (p Plan) TriggerLevel() (level float64, ok bool) {
	if p.Extra.EntryParams != nil && p.Extra.EntryParams.Level != nil {
		return *p.Extra.EntryParams.Level, *p.Extra.EntryParams.Level > 0
	}
	return p.EntryPrice, p.EntryPrice > 0
}

// Sign returns +1 for long (breakout above level), -1 for short (breakout
// below level).
func (d Direction) Sign() float64 {
	if d == DirectionShort {
		return -1
	}
	return 1
}
