package membership

import (
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/events"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/membership/repository"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/membership/service"
	"go.uber.org/fx"
)

var Module = fx.Module("membership.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(service.NewSync),
	fx.Invoke(func(sync *service.Sync, dispatcher *events.Dispatcher) {
		sync.Register(dispatcher)
	}),
)
