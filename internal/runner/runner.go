package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/arthafin/limitengine/internal/clock"
	downgradedomain "github.com/arthafin/limitengine/internal/downgrade/domain"
	"github.com/arthafin/limitengine/internal/graduation"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	downgradeBatchSize = 200
	retryBatchSize     = 100
)

// Config controls loop cadence and cross-worker locking.
type Config struct {
	RunInterval  time.Duration
	BatchLockTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.RunInterval <= 0 {
		c.RunInterval = time.Hour
	}
	if c.BatchLockTTL <= 0 {
		c.BatchLockTTL = 2 * time.Hour
	}
	return c
}

type Params struct {
	fx.In

	Log           *zap.Logger
	Clock         clock.Clock
	GraduationSvc *graduation.Service
	DowngradeSvc  downgradedomain.Service
	Locker        *Locker
	Config        Config `optional:"true"`
}

// Runner drives the per-batch invocation contract on an interval. Each
// pipeline re-derives eligibility from current state, so overlapping or
// repeated ticks are safe.
type Runner struct {
	log           *zap.Logger
	cfg           Config
	clock         clock.Clock
	graduationSvc *graduation.Service
	downgradeSvc  downgradedomain.Service
	locker        *Locker
}

func New(p Params) *Runner {
	return &Runner{
		log:           p.Log.Named("runner"),
		cfg:           p.Config.withDefaults(),
		clock:         p.Clock,
		graduationSvc: p.GraduationSvc,
		downgradeSvc:  p.DowngradeSvc,
		locker:        p.Locker,
	}
}

func (r *Runner) RunForever(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.RunInterval)
	defer ticker.Stop()

	r.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			r.log.Info("runner stopping")
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce runs the daily graduation batch (at most once per day across
// workers, guarded by the batch lock) and drains downgrade work.
func (r *Runner) RunOnce(ctx context.Context) {
	today := r.clock.Now()

	lockKey := fmt.Sprintf("limitengine:graduation:daily:%s", today.Format("2006-01-02"))
	token, acquired, err := r.locker.TryLock(ctx, lockKey, r.cfg.BatchLockTTL)
	if err != nil {
		r.log.Error("batch lock error", zap.Error(err))
	} else if acquired {
		if err := r.graduationSvc.RunDailyBatch(ctx); err != nil {
			r.log.Error("graduation batch failed", zap.Error(err))
			// Release so the next tick can re-run the unfinished batch.
			if relErr := r.locker.Release(ctx, lockKey, token); relErr != nil {
				r.log.Warn("batch lock release failed", zap.Error(relErr))
			}
		}
	}

	if err := r.downgradeSvc.ProcessPending(ctx, today, downgradeBatchSize); err != nil {
		r.log.Error("downgrade batch failed", zap.Error(err))
	}
	if err := r.downgradeSvc.RetryUnresolved(ctx, retryBatchSize); err != nil {
		r.log.Error("downgrade retry batch failed", zap.Error(err))
	}
}
