package main

import (
	"github.com/arthafin/limitengine/internal/account"
	"github.com/arthafin/limitengine/internal/bureau"
	"github.com/arthafin/limitengine/internal/cache"
	"github.com/arthafin/limitengine/internal/clock"
	"github.com/arthafin/limitengine/internal/config"
	"github.com/arthafin/limitengine/internal/downgrade"
	"github.com/arthafin/limitengine/internal/eligibility"
	"github.com/arthafin/limitengine/internal/events"
	"github.com/arthafin/limitengine/internal/featureflag"
	"github.com/arthafin/limitengine/internal/graduation"
	"github.com/arthafin/limitengine/internal/ledger"
	"github.com/arthafin/limitengine/internal/logger"
	"github.com/arthafin/limitengine/internal/observability"
	"github.com/arthafin/limitengine/internal/runner"
	"github.com/arthafin/limitengine/internal/suspend"
	"github.com/arthafin/limitengine/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		cache.Module,
		clock.Module,
		events.Module,

		account.Module,
		featureflag.Module,
		ledger.Module,
		eligibility.Module,
		bureau.Module,
		graduation.Module,
		downgrade.Module,
		suspend.Module,

		runner.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) *snowflake.Node {
	node, err := snowflake.NewNode(cfg.WorkerShardID)
	if err != nil {
		panic(err)
	}
	return node
}
