package downgrade

import (
	"github.com/arthafin/limitengine/internal/downgrade/repository"
	"github.com/arthafin/limitengine/internal/downgrade/service"
	"go.uber.org/fx"
)

var Module = fx.Module("downgrade.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
