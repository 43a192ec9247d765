package loyalty

import (
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/loyalty/repository"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/loyalty/service"
	"go.uber.org/fx"
)

var Module = fx.Module("loyalty.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
