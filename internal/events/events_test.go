package events

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestPublishFiltersByKind(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	ctx := context.Background()

	var awarded, paused int
	d.Subscribe(SinkFunc(func(context.Context, Kind, Payload) { awarded++ }), PointsAwarded)
	d.Subscribe(SinkFunc(func(context.Context, Kind, Payload) { paused++ }), SubscriptionPaused)

	d.Publish(ctx, PointsAwarded, Payload{"points": 10})
	d.Publish(ctx, PointsAwarded, Payload{"points": 20})
	d.Publish(ctx, SubscriptionPaused, Payload{})

	if awarded != 2 {
		t.Fatalf("awarded deliveries = %d, want 2", awarded)
	}
	if paused != 1 {
		t.Fatalf("paused deliveries = %d, want 1", paused)
	}
}

func TestSubscribeWithoutKindsReceivesEverything(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	ctx := context.Background()

	var seen []Kind
	d.Subscribe(SinkFunc(func(_ context.Context, kind Kind, _ Payload) { seen = append(seen, kind) }))

	d.Publish(ctx, SubscriptionCreated, Payload{})
	d.Publish(ctx, RewardRedeemed, Payload{})
	d.Publish(ctx, MembershipLevelChanged, Payload{})

	if len(seen) != 3 {
		t.Fatalf("deliveries = %d, want 3", len(seen))
	}
	if seen[0] != SubscriptionCreated || seen[2] != MembershipLevelChanged {
		t.Fatalf("kinds = %v", seen)
	}
}

func TestPublishDeliversInRegistrationOrder(t *testing.T) {
	d := NewDispatcher(zap.NewNop())

	var order []string
	d.Subscribe(SinkFunc(func(context.Context, Kind, Payload) { order = append(order, "first") }), PointsAwarded)
	d.Subscribe(SinkFunc(func(context.Context, Kind, Payload) { order = append(order, "second") }), PointsAwarded)

	d.Publish(context.Background(), PointsAwarded, Payload{})

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("delivery order = %v", order)
	}
}

func TestSinkPanicDoesNotStopDelivery(t *testing.T) {
	d := NewDispatcher(zap.NewNop())

	delivered := false
	d.Subscribe(SinkFunc(func(context.Context, Kind, Payload) { panic("boom") }), PointsAwarded)
	d.Subscribe(SinkFunc(func(context.Context, Kind, Payload) { delivered = true }), PointsAwarded)

	d.Publish(context.Background(), PointsAwarded, Payload{"points": 5})

	if !delivered {
		t.Fatal("panicking sink blocked the next sink")
	}
}
