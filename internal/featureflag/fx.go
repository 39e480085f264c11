package featureflag

import (
	"github.com/arthafin/limitengine/internal/featureflag/repository"
	"github.com/arthafin/limitengine/internal/featureflag/service"
	"go.uber.org/fx"
)

var Module = fx.Module("featureflag.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
