// Package telemetry provides structured logging and Prometheus
// instrumentation for the breakout engine, keyed on plan and instrument
// IDs rather than a generic trace ID.
package telemetry

import (
	"context"
	"log/slog"
	"os"
)

type ctxKey string

const (
	planIDKey       ctxKey = "plan_id"
	instrumentIDKey ctxKey = "instrument_id"
)

// InitLogger creates a structured logger for the given service, JSON to
// stdout, and installs it as the slog default.
func InitLogger(service string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler).With(slog.String("service", service))
	slog.SetDefault(logger)
	return logger
}

// WithPlanID stores a plan ID in the context for downstream log propagation.
func WithPlanID(ctx context.Context, planID string) context.Context {
	return context.WithValue(ctx, planIDKey, planID)
}

// PlanID extracts the plan ID from context, "" if unset.
func PlanID(ctx context.Context) string {
	if v, ok := ctx.Value(planIDKey).(string); ok {
		return v
	}
	return ""
}

// WithInstrumentID stores an instrument ID in the context.
func WithInstrumentID(ctx context.Context, instrumentID string) context.Context {
	return context.WithValue(ctx, instrumentIDKey, instrumentID)
}

// InstrumentID extracts the instrument ID from context, "" if unset.
func InstrumentID(ctx context.Context) string {
	if v, ok := ctx.Value(instrumentIDKey).(string); ok {
		return v
	}
	return ""
}

// LogAttrs returns slog attributes for whatever plan/instrument IDs are
// present in ctx. Usage: slog.Info("msg", telemetry.LogAttrs(ctx)...)
func LogAttrs(ctx context.Context) []any {
	var attrs []any
	if id := PlanID(ctx); id != "" {
		attrs = append(attrs, slog.String("plan_id", id))
	}
	if id := InstrumentID(ctx); id != "" {
		attrs = append(attrs, slog.String("instrument_id", id))
	}
	return attrs
}
