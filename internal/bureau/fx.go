package bureau

import (
	"github.com/arthafin/limitengine/internal/bureau/repository"
	"github.com/arthafin/limitengine/internal/bureau/service"
	"go.uber.org/fx"
)

var Module = fx.Module("bureau.gate",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewGate),
)
