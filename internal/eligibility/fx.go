package eligibility

import (
	"github.com/arthafin/limitengine/internal/eligibility/repository"
	"github.com/arthafin/limitengine/internal/eligibility/service"
	"go.uber.org/fx"
)

var Module = fx.Module("eligibility.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
