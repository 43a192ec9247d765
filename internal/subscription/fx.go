package subscription

import (
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/subscription/repository"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
