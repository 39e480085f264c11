package service

import (
	"context"

	accountdomain "github.com/arthafin/limitengine/internal/account/domain"
	"github.com/arthafin/limitengine/internal/bureau/domain"
	featureflagdomain "github.com/arthafin/limitengine/internal/featureflag/domain"
	"github.com/getsentry/sentry-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Repo        domain.Repository
	AccountRepo accountdomain.Repository
	Flags       featureflagdomain.Service
}

type Gate struct {
	db          *gorm.DB
	log         *zap.Logger
	repo        domain.Repository
	accountRepo accountdomain.Repository
	flags       featureflagdomain.Service
}

func NewGate(p Params) domain.Gate {
	return &Gate{
		db:          p.DB,
		log:         p.Log.Named("bureau.gate"),
		repo:        p.Repo,
		accountRepo: p.AccountRepo,
		flags:       p.Flags,
	}
}

// Allow reports whether the account may graduate. Every failure path is a
// block; only a clean record (or the feature being off) passes.
func (g *Gate) Allow(ctx context.Context, accountID int64) bool {
	allowed, err := g.evaluate(ctx, accountID)
	if err != nil {
		sentry.CaptureException(err)
		g.log.Error("bureau gate evaluation failed",
			zap.Int64("account_id", accountID),
			zap.Error(err),
		)
		return false
	}
	return allowed
}

func (g *Gate) evaluate(ctx context.Context, accountID int64) (bool, error) {
	enabled, err := g.flags.FDCCheckEnabled(ctx)
	if err != nil {
		return false, err
	}
	if !enabled {
		return true, nil
	}

	application, err := g.accountRepo.LatestApprovedApplication(ctx, g.db, accountID)
	if err != nil {
		return false, err
	}
	if application == nil {
		g.log.Info("no approved application for bureau check", zap.Int64("account_id", accountID))
		return false, nil
	}

	latest, err := g.repo.LatestInquiry(ctx, g.db, application.ID)
	if err != nil {
		return false, err
	}
	if latest == nil {
		g.log.Info("no bureau inquiry for application",
			zap.Int64("account_id", accountID),
			zap.Int64("application_id", application.ID),
		)
		return false, nil
	}

	latestLoans, err := g.repo.Loans(ctx, g.db, latest.ID)
	if err != nil {
		return false, err
	}
	for _, loan := range latestLoans {
		if loan.IsOwnPlatform {
			continue
		}
		if loan.LatestDPD > domain.MaxNonPlatformDPD {
			g.log.Info("blocked by delinquent external loan",
				zap.Int64("account_id", accountID),
				zap.Int("latest_dpd", loan.LatestDPD),
			)
			return false, nil
		}
	}

	initial, err := g.repo.InitialInquiry(ctx, g.db, application.ID)
	if err != nil {
		return false, err
	}
	initialCount := 0
	if initial != nil && initial.ID != latest.ID {
		initialLoans, err := g.repo.Loans(ctx, g.db, initial.ID)
		if err != nil {
			return false, err
		}
		initialCount = countOutstanding(initialLoans)
	} else {
		initialCount = countOutstanding(latestLoans)
	}

	if latestCount := countOutstanding(latestLoans); latestCount > initialCount {
		g.log.Info("blocked by new outstanding external debt",
			zap.Int64("account_id", accountID),
			zap.Int("initial_outstanding", initialCount),
			zap.Int("latest_outstanding", latestCount),
		)
		return false, nil
	}

	return true, nil
}

func countOutstanding(loans []domain.FDCInquiryLoan) int {
	count := 0
	for _, loan := range loans {
		if !loan.IsOwnPlatform && loan.Status == domain.LoanStatusOutstanding {
			count++
		}
	}
	return count
}
