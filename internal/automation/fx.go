package automation

import (
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/automation/repository"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/automation/service"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/events"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("automation.service",
	fx.Provide(repository.Provide),
	fx.Provide(func(log *zap.Logger, provider email.Provider) *service.Executor {
		return service.NewExecutor(log, provider)
	}),
	fx.Provide(service.NewService),
	fx.Provide(service.NewBridge),
	fx.Invoke(func(bridge *service.Bridge, dispatcher *events.Dispatcher) {
		bridge.Register(dispatcher)
	}),
)
