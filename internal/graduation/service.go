package graduation

import (
	"context"
	"time"

	accountdomain "github.com/arthafin/limitengine/internal/account/domain"
	bureaudomain "github.com/arthafin/limitengine/internal/bureau/domain"
	"github.com/arthafin/limitengine/internal/clock"
	eligibilitydomain "github.com/arthafin/limitengine/internal/eligibility/domain"
	"github.com/arthafin/limitengine/internal/events"
	featureflagdomain "github.com/arthafin/limitengine/internal/featureflag/domain"
	ledgerdomain "github.com/arthafin/limitengine/internal/ledger/domain"
	obsmetrics "github.com/arthafin/limitengine/internal/observability/metrics"
	pkgdb "github.com/arthafin/limitengine/pkg/db"
	"github.com/getsentry/sentry-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	Clock          clock.Clock
	AccountRepo    accountdomain.Repository
	EligibilitySvc eligibilitydomain.Service
	BureauGate     bureaudomain.Gate
	Flags          featureflagdomain.Service
	LedgerSvc      ledgerdomain.Service
	Publisher      events.Publisher
	Metrics        *obsmetrics.Metrics `optional:"true"`
}

// Service is the graduation orchestrator. It is invoked per batch; safety
// under concurrent invocations on the same account comes from the
// CreditLimit row lock taken in the commit transaction, not from any
// in-process primitive.
type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	clock          clock.Clock
	accountRepo    accountdomain.Repository
	eligibilitySvc eligibilitydomain.Service
	bureauGate     bureaudomain.Gate
	flags          featureflagdomain.Service
	ledgerSvc      ledgerdomain.Service
	publisher      events.Publisher
	metrics        *obsmetrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("graduation.service"),
		clock:          p.Clock,
		accountRepo:    p.AccountRepo,
		eligibilitySvc: p.EligibilitySvc,
		bureauGate:     p.BureauGate,
		flags:          p.Flags,
		ledgerSvc:      p.LedgerSvc,
		publisher:      p.Publisher,
		metrics:        p.Metrics,
	}
}

// RunDailyBatch processes today's shard of the candidate view: one tenth
// of the population per calendar day, split into first-time and repeat
// graduations.
func (s *Service) RunDailyBatch(ctx context.Context) error {
	today := s.clock.Now()
	shard := today.Day() % 10

	rules, active, err := s.flags.GraduationRuleSet(ctx)
	if err != nil {
		return err
	}
	if !active {
		s.log.Info("graduation rule set inactive, skipping batch")
		return nil
	}

	candidates, err := s.accountRepo.CandidateShard(ctx, s.db, shard)
	if err != nil {
		return err
	}

	accountIDs := make([]int64, 0, len(candidates))
	for _, candidate := range candidates {
		accountIDs = append(accountIDs, candidate.AccountID)
	}
	// The candidate view lags behind account_properties, so the split
	// reads the live row. Trusting the view here would treat an account
	// graduated earlier today as a fresh first-graduate.
	properties, err := s.accountRepo.Properties(ctx, s.db, accountIDs)
	if err != nil {
		return err
	}

	var first, repeat []accountdomain.RegularCustomerAccount
	for _, candidate := range candidates {
		last := candidate.LastGraduationDate
		if property, ok := properties[candidate.AccountID]; ok && property.LastGraduationDate != nil {
			last = property.LastGraduationDate
		}
		switch {
		case last == nil:
			first = append(first, candidate)
		case sameDay(*last, today):
			s.log.Info("account already graduated today, skipping",
				zap.Int64("account_id", candidate.AccountID),
			)
		default:
			repeat = append(repeat, candidate)
		}
	}
	s.log.Info("graduation batch starting",
		zap.Int("shard", shard),
		zap.Int("first_graduate", len(first)),
		zap.Int("repeat_graduate", len(repeat)),
	)

	if err := s.RunGraduationBatch(ctx, first, today, rules, true); err != nil {
		return err
	}
	return s.RunGraduationBatch(ctx, repeat, today, rules, false)
}

// RunGraduationBatch evaluates and commits one candidate group. Failures
// are isolated per account; a commit error on one account never aborts the
// rest of the batch.
func (s *Service) RunGraduationBatch(
	ctx context.Context,
	candidates []accountdomain.RegularCustomerAccount,
	asOf time.Time,
	rules featureflagdomain.GraduationRuleSet,
	firstGraduate bool,
) error {
	if len(candidates) == 0 {
		return nil
	}

	accountIDs := make([]int64, 0, len(candidates))
	customers := make(map[int64]int64, len(candidates))
	for _, candidate := range candidates {
		accountIDs = append(accountIDs, candidate.AccountID)
		customers[candidate.AccountID] = candidate.CustomerID
	}

	limits, err := s.accountRepo.CreditLimits(ctx, s.db, accountIDs)
	if err != nil {
		return err
	}
	properties, err := s.accountRepo.Properties(ctx, s.db, accountIDs)
	if err != nil {
		return err
	}

	setLimits := make(map[int64]int64, len(limits))
	for id, limit := range limits {
		setLimits[id] = limit.SetLimit
	}

	premiumArea, err := s.flags.PremiumScoreArea(ctx)
	if err != nil {
		return err
	}

	lessRisky, risky := s.splitTiers(accountIDs, limits, properties, premiumArea)

	riskyPassed, err := s.eligibilitySvc.FilterScoreTrend(ctx, risky, asOf)
	if err != nil {
		return err
	}

	tiers := []struct {
		tier RiskTier
		ids  []int64
	}{
		{TierLessRisky, lessRisky},
		{TierRisky, riskyPassed},
	}
	for _, group := range tiers {
		eligible, err := s.eligibilitySvc.FilterEligible(ctx, group.ids, asOf, rules, firstGraduate, setLimits)
		if err != nil {
			return err
		}
		for _, accountID := range eligible {
			if !s.bureauGate.Allow(ctx, accountID) {
				s.metrics.RecordBureauBlock(ctx)
				continue
			}
			property := properties[accountID]
			s.graduate(ctx, accountID, customers[accountID], group.tier, property, asOf)
		}
	}
	return nil
}

// splitTiers assigns each account to exactly one tier per run. Failing the
// less-risky utilization or premium-area check reclassifies the account to
// the risky tier; it is not a rejection.
func (s *Service) splitTiers(
	accountIDs []int64,
	limits map[int64]accountdomain.CreditLimit,
	properties map[int64]accountdomain.AccountProperty,
	premiumArea float64,
) (lessRisky, risky []int64) {
	for _, id := range accountIDs {
		limit, ok := limits[id]
		if !ok || limit.SetLimit <= 0 {
			continue
		}
		utilization := float64(limit.UsedLimit) / float64(limit.SetLimit)
		bucketed := eligibilitydomain.BucketScore(properties[id].Pgood)
		if utilization < maxLimitUtilization && bucketed < premiumArea {
			lessRisky = append(lessRisky, id)
			continue
		}
		s.log.Info("account reclassified to risky tier",
			zap.Int64("account_id", id),
			zap.Float64("utilization", utilization),
			zap.Float64("bucketed_score", bucketed),
		)
		risky = append(risky, id)
	}
	return lessRisky, risky
}

func (s *Service) graduate(
	ctx context.Context,
	accountID, customerID int64,
	tier RiskTier,
	property accountdomain.AccountProperty,
	asOf time.Time,
) {
	graduationType := ledgerdomain.GraduationTypeRegularCustomer
	if property.IsEntryLevel {
		graduationType = ledgerdomain.GraduationTypeEntryLevel
	}

	var result *ledgerdomain.ChangeResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var cur accountdomain.CreditLimit
		if err := pkgdb.WithRowLock(tx.WithContext(ctx)).
			Where("account_id = ?", accountID).
			Limit(1).
			Find(&cur).Error; err != nil {
			return err
		}
		if cur.ID == 0 {
			return ledgerdomain.ErrCreditLimitNotFound
		}

		newSet := clampToPreMatrix(nextSetLimit(tier, cur.SetLimit), cur.MaxLimitPreMatrix)
		if newSet <= cur.SetLimit {
			s.log.Info("graduation skipped, limit already at ceiling",
				zap.Int64("account_id", accountID),
				zap.Int64("set_limit", cur.SetLimit),
			)
			return nil
		}
		newMax := cur.MaxLimit
		if newSet > newMax {
			newMax = newSet
		}

		var err error
		result, err = s.ledgerSvc.ApplyLimitChange(ctx, tx, ledgerdomain.LimitChange{
			AccountID:      accountID,
			CustomerID:     customerID,
			Current:        cur,
			NewSetLimit:    newSet,
			NewMaxLimit:    newMax,
			Kind:           ledgerdomain.ChangeKindGraduation,
			GraduationType: graduationType,
			Today:          asOf,
		})
		return err
	})
	if err != nil {
		sentry.CaptureException(err)
		s.log.Error("graduation commit failed",
			zap.Int64("account_id", accountID),
			zap.Error(err),
		)
		return
	}
	if result == nil || result.NoOp {
		return
	}

	s.publisher.Graduated(ctx, events.GraduatedEvent{
		CustomerID:  customerID,
		AccountID:   accountID,
		OldSetLimit: result.OldSetLimit,
		NewSetLimit: result.NewSetLimit,
	})
	s.metrics.RecordGraduation(ctx, string(tier))
	s.log.Info("account graduated",
		zap.Int64("account_id", accountID),
		zap.String("tier", string(tier)),
		zap.Int64("old_set_limit", result.OldSetLimit),
		zap.Int64("new_set_limit", result.NewSetLimit),
	)
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
