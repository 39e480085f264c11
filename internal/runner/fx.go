package runner

import (
	"context"

	"github.com/arthafin/limitengine/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("runner",
	fx.Provide(ProvideConfig),
	fx.Provide(NewLocker),
	fx.Provide(New),
	fx.Invoke(Start),
)

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval:  cfg.RunInterval,
		BatchLockTTL: cfg.BatchLockTTL,
	}
}

func Start(lc fx.Lifecycle, r *Runner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			loopCtx, cancel := context.WithCancel(context.Background())

			go r.RunForever(loopCtx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
