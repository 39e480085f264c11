package graduation

import "go.uber.org/fx"

var Module = fx.Module("graduation.service",
	fx.Provide(NewService),
)
