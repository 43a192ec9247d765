package service

import (
	"context"

	automationdomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/automation/domain"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/events"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type BridgeParam struct {
	fx.In

	Log *zap.Logger
	Svc automationdomain.Service
}

// Bridge routes every published domain event into the rule engine, using
// the event kind as the trigger type.
type Bridge struct {
	log *zap.Logger
	svc automationdomain.Service
}

func NewBridge(p BridgeParam) *Bridge {
	return &Bridge{
		log: p.Log.Named("automation.bridge"),
		svc: p.Svc,
	}
}

func (b *Bridge) Register(dispatcher *events.Dispatcher) {
	dispatcher.Subscribe(events.SinkFunc(b.Handle))
}

func (b *Bridge) Handle(ctx context.Context, kind events.Kind, payload events.Payload) {
	if _, err := b.svc.Trigger(ctx, string(kind), map[string]any(payload)); err != nil {
		b.log.Error("trigger failed",
			zap.String("trigger_type", string(kind)),
			zap.Error(err))
	}
}
