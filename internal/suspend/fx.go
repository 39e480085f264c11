package suspend

import (
	"github.com/arthafin/limitengine/internal/suspend/repository"
	"github.com/arthafin/limitengine/internal/suspend/service"
	"go.uber.org/fx"
)

var Module = fx.Module("suspend.gate",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewGate),
)
