package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/arthafin/limitengine/internal/cache"
	featureflagdomain "github.com/arthafin/limitengine/internal/featureflag/domain"
	"github.com/arthafin/limitengine/internal/suspend/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Repo  domain.Repository
	Cache cache.Cache
	Flags featureflagdomain.Service
}

type Gate struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	cache cache.Cache
	flags featureflagdomain.Service
}

func NewGate(p Params) domain.Gate {
	return &Gate{
		db:    p.DB,
		log:   p.Log.Named("suspend.gate"),
		repo:  p.Repo,
		cache: p.Cache,
		flags: p.Flags,
	}
}

func cacheKey(customerID int64) string {
	return fmt.Sprintf("limitengine:suspend:customer:%d", customerID)
}

// Status returns the cached suspend state for a customer, loading and
// re-caching it on a miss.
func (g *Gate) Status(ctx context.Context, customerID int64) (domain.SuspendStatus, error) {
	key := cacheKey(customerID)
	if raw, err := g.cache.Get(ctx, key); err == nil {
		var status domain.SuspendStatus
		if err := json.Unmarshal(raw, &status); err == nil {
			return status, nil
		}
		// Corrupt entry: drop it and fall through to the lookup.
		_ = g.cache.Delete(ctx, key)
	} else if !errors.Is(err, cache.ErrMiss) {
		g.log.Warn("suspend cache read failed", zap.Error(err))
	}

	status, err := g.lookup(ctx, customerID)
	if err != nil {
		return domain.SuspendStatus{}, err
	}

	settings, err := g.flags.SuspendCacheSettings(ctx)
	if err != nil {
		return domain.SuspendStatus{}, err
	}
	encoded, err := json.Marshal(status)
	if err != nil {
		return domain.SuspendStatus{}, err
	}
	if err := g.cache.Set(ctx, key, encoded, settings.TTL); err != nil {
		g.log.Warn("suspend cache write failed", zap.Error(err))
	}
	return status, nil
}

func (g *Gate) Invalidate(ctx context.Context, customerID int64) error {
	return g.cache.Delete(ctx, cacheKey(customerID))
}

func (g *Gate) lookup(ctx context.Context, customerID int64) (domain.SuspendStatus, error) {
	suspend, err := g.repo.LatestSuspend(ctx, g.db, customerID)
	if err != nil {
		return domain.SuspendStatus{}, err
	}
	if suspend == nil || !suspend.IsSuspended {
		return domain.SuspendStatus{IsSuspended: false}, nil
	}

	reason := domain.DefaultLockReason
	mapping, active, err := g.flags.SuspendReasonMapping(ctx)
	if err != nil {
		return domain.SuspendStatus{}, err
	}
	if active {
		if mapped, ok := mapping[suspend.ReasonCode]; ok {
			reason = mapped
		}
	}
	return domain.SuspendStatus{IsSuspended: true, LockReason: &reason}, nil
}
