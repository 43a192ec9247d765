// Package events is the typed pub/sub seam between billing domains.
// Publishing is fire-and-continue: a failing or panicking sink is logged
// and never aborts the publisher or sibling sinks.
package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Kind identifies a domain event.
type Kind string

const (
	SubscriptionCreated    Kind = "subscription_created"
	SubscriptionPaused     Kind = "subscription_paused"
	SubscriptionResumed    Kind = "subscription_resumed"
	SubscriptionCancelled  Kind = "subscription_cancelled"
	SubscriptionExpired    Kind = "subscription_expired"
	SubscriptionUpgraded   Kind = "subscription_upgraded"
	SubscriptionDowngraded Kind = "subscription_downgraded"
	SubscriptionOverdue    Kind = "subscription_overdue"

	MembershipLevelChanged Kind = "membership_level_changed"

	PointsAwarded  Kind = "points_awarded"
	PointsDeducted Kind = "points_deducted"
	RewardRedeemed Kind = "reward_redeemed"
	CourseGranted  Kind = "course_granted"
)

// Payload carries the event's data. Keys are snake_case field names.
type Payload map[string]any

// Sink consumes events of the kinds it was registered for.
type Sink interface {
	Handle(ctx context.Context, kind Kind, payload Payload)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, kind Kind, payload Payload)

func (f SinkFunc) Handle(ctx context.Context, kind Kind, payload Payload) {
	f(ctx, kind, payload)
}

// Dispatcher routes published events to registered sinks.
type Dispatcher struct {
	log *zap.Logger

	mu    sync.RWMutex
	sinks map[Kind][]Sink
	all   []Sink
}

func NewDispatcher(log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		log:   log.Named("events"),
		sinks: make(map[Kind][]Sink),
	}
}

// Subscribe registers a sink for the given kinds. With no kinds the sink
// receives every event.
func (d *Dispatcher) Subscribe(sink Sink, kinds ...Kind) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(kinds) == 0 {
		d.all = append(d.all, sink)
		return
	}
	for _, kind := range kinds {
		d.sinks[kind] = append(d.sinks[kind], sink)
	}
}

// Publish delivers the event to every matching sink synchronously, in
// registration order. Sink panics are recovered and logged.
func (d *Dispatcher) Publish(ctx context.Context, kind Kind, payload Payload) {
	d.mu.RLock()
	targets := make([]Sink, 0, len(d.sinks[kind])+len(d.all))
	targets = append(targets, d.sinks[kind]...)
	targets = append(targets, d.all...)
	d.mu.RUnlock()

	for _, sink := range targets {
		d.deliver(ctx, sink, kind, payload)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, sink Sink, kind Kind, payload Payload) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("event sink panicked",
				zap.String("kind", string(kind)),
				zap.Any("panic", r),
			)
		}
	}()
	sink.Handle(ctx, kind, payload)
}
