package service

import (
	"context"
	"time"

	"github.com/arthafin/limitengine/internal/eligibility/domain"
	featureflagdomain "github.com/arthafin/limitengine/internal/featureflag/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("eligibility.service"),
		repo: p.Repo,
	}
}

// FilterEligible applies the five graduation filters as a conjunction and
// returns the surviving account ids. Exclusion is silent to the caller;
// each filter logs the ids it newly dropped.
func (s *Service) FilterEligible(
	ctx context.Context,
	accountIDs []int64,
	checkingDate time.Time,
	rules featureflagdomain.GraduationRuleSet,
	firstGraduate bool,
	setLimits map[int64]int64,
) ([]int64, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}

	aggregates, err := s.repo.AggregateWindow(ctx, s.db, accountIDs, checkingDate, firstGraduate)
	if err != nil {
		return nil, err
	}

	remaining := accountIDs
	remaining = s.applyFilter(remaining, "grace_payment", func(id int64) bool {
		return aggregates[id].GraceCount <= rules.MaxGracePayment
	})
	remaining = s.applyFilter(remaining, "late_payment", func(id int64) bool {
		return aggregates[id].LateCount <= rules.MaxLatePayment
	})
	remaining = s.applyFilter(remaining, "not_paid_payment", func(id int64) bool {
		return aggregates[id].NotPaidCount <= rules.MaxNotPaidPayment
	})
	remaining = s.applyFilter(remaining, "paid_percentage", func(id int64) bool {
		setLimit := setLimits[id]
		if setLimit <= 0 {
			return false
		}
		paid := float64(aggregates[id].PaidAmount)
		return paid/float64(setLimit) >= rules.MinPercentagePaidPerCreditLimit/100
	})
	remaining = s.applyFilter(remaining, "paid_off_loan", func(id int64) bool {
		return aggregates[id].PaidOffLoans >= rules.MinPaidOffLoan
	})

	return remaining, nil
}

// FilterScoreTrend keeps accounts whose current-month bucketed score is
// strictly above both the prior month's bucketed score and the raw model
// output. Accounts missing either month are dropped.
func (s *Service) FilterScoreTrend(ctx context.Context, accountIDs []int64, checkingDate time.Time) ([]int64, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}

	currentMonth := domain.MonthStart(checkingDate)
	priorMonth := currentMonth.AddDate(0, -1, 0)

	current, err := s.repo.MonthlyScores(ctx, s.db, accountIDs, currentMonth)
	if err != nil {
		return nil, err
	}
	prior, err := s.repo.MonthlyScores(ctx, s.db, accountIDs, priorMonth)
	if err != nil {
		return nil, err
	}

	return s.applyFilter(accountIDs, "score_trend", func(id int64) bool {
		cur, okCur := current[id]
		prev, okPrev := prior[id]
		if !okCur || !okPrev {
			return false
		}
		bucketed := domain.BucketScore(cur.Score)
		return bucketed > domain.BucketScore(prev.Score) && bucketed > cur.RawScore
	}), nil
}

func (s *Service) applyFilter(accountIDs []int64, name string, pass func(int64) bool) []int64 {
	kept := make([]int64, 0, len(accountIDs))
	var excluded []int64
	for _, id := range accountIDs {
		if pass(id) {
			kept = append(kept, id)
		} else {
			excluded = append(excluded, id)
		}
	}
	if len(excluded) > 0 {
		s.log.Info("accounts excluded by filter",
			zap.String("filter", name),
			zap.Int64s("account_ids", excluded),
		)
	}
	return kept
}
