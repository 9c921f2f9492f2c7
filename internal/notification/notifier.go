// Package notification delivers terminal signal events to external
// channels: log, webhook, Telegram, and websocket broadcast.
package notification

import (
	"context"
	"log"

	"breakoutengine/internal/model"
)

// Notifier is the interface for all notification backends.
type Notifier interface {
	Send(ctx context.Context, sig model.Signal) error
}

// LogNotifier logs signals — useful for development and as the always-on
// sink alongside any configured external ones.
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, sig model.Signal) error {
	log.Printf("[notify] plan=%s state=%s score=%d price=%.8g",
		sig.PlanID, sig.State, sig.StrengthScore, sig.LastPrice)
	return nil
}

// Sink adapts a Notifier to the emitter.Sink interface (Name/Deliver,
// context-free — the Emitter dispatches synchronously and fire-and-forget,
// per spec §4.6 step 5. Deliver passes context.Background(), so any
// timeout is the Notifier's own, e.g. the HTTP notifiers' http.Client
// timeout).
type Sink struct {
	name string
	n    Notifier
}

// NewSink wraps a Notifier as an emitter.Sink under the given name (used in
// log lines and DeliveryError).
func NewSink(name string, n Notifier) Sink {
	return Sink{name: name, n: n}
}

func (s Sink) Name() string { return s.name }

func (s Sink) Deliver(sig model.Signal) error {
	return s.n.Send(context.Background(), sig)
}
