package service

import (
	"context"
	"errors"
	"time"

	accountdomain "github.com/arthafin/limitengine/internal/account/domain"
	"github.com/arthafin/limitengine/internal/clock"
	"github.com/arthafin/limitengine/internal/downgrade/domain"
	"github.com/arthafin/limitengine/internal/events"
	featureflagdomain "github.com/arthafin/limitengine/internal/featureflag/domain"
	ledgerdomain "github.com/arthafin/limitengine/internal/ledger/domain"
	obsmetrics "github.com/arthafin/limitengine/internal/observability/metrics"
	pkgdb "github.com/arthafin/limitengine/pkg/db"
	"github.com/bwmarrin/snowflake"
	"github.com/getsentry/sentry-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	GenID       *snowflake.Node
	Repo        domain.Repository
	AccountRepo accountdomain.Repository
	Flags       featureflagdomain.Service
	LedgerSvc   ledgerdomain.Service
	Publisher   events.Publisher
	Metrics     *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	genID       *snowflake.Node
	repo        domain.Repository
	accountRepo accountdomain.Repository
	flags       featureflagdomain.Service
	ledgerSvc   ledgerdomain.Service
	publisher   events.Publisher
	metrics     *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("downgrade.service"),
		clock:       p.Clock,
		genID:       p.GenID,
		repo:        p.Repo,
		accountRepo: p.AccountRepo,
		flags:       p.Flags,
		ledgerSvc:   p.LedgerSvc,
		publisher:   p.Publisher,
		metrics:     p.Metrics,
	}
}

// ProcessInstruction runs the full downgrade pipeline for one instruction.
// Precondition violations are bookkept as failure records and do not
// surface as errors; database errors propagate to the caller.
func (s *Service) ProcessInstruction(ctx context.Context, instruction domain.CustomerGraduationInstruction) error {
	if instruction.IsGraduate {
		s.log.Warn("instruction is a graduation decision, skipping",
			zap.Int64("instruction_id", instruction.ID))
		return nil
	}

	reason, err := s.attempt(ctx, instruction)
	if err != nil {
		sentry.CaptureException(err)
		s.log.Error("downgrade attempt failed",
			zap.Int64("instruction_id", instruction.ID),
			zap.Error(err),
		)
		return err
	}
	if reason != "" {
		return s.recordFailure(ctx, instruction.ID, reason)
	}
	return s.finishSuccess(ctx, instruction)
}

// ProcessPending consumes unattempted downgrade instructions up to asOf.
func (s *Service) ProcessPending(ctx context.Context, asOf time.Time, limit int) error {
	instructions, err := s.repo.PendingInstructions(ctx, s.db, asOf, limit)
	if err != nil {
		return err
	}
	for _, instruction := range instructions {
		if err := s.ProcessInstruction(ctx, instruction); err != nil {
			// Already reported; the rest of the batch still runs.
			continue
		}
	}
	return nil
}

// RetryDowngrade re-attempts a failed instruction. The retry counter moves
// on every attempt, including the one that finally succeeds; resolved
// records are kept, never deleted.
func (s *Service) RetryDowngrade(ctx context.Context, failureID snowflake.ID, instructionID int64) error {
	failure, err := s.repo.FindFailure(ctx, s.db, failureID)
	if err != nil {
		return err
	}
	if failure == nil {
		s.log.Warn("failure record not found", zap.Int64("failure_id", int64(failureID)))
		return nil
	}
	if failure.IsResolved || failure.Skipped {
		return nil
	}

	failure.Retries++
	failure.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateFailure(ctx, s.db, failure); err != nil {
		return err
	}
	s.metrics.RecordDowngradeRetry(ctx)

	instruction, err := s.repo.FindInstruction(ctx, s.db, instructionID)
	if err != nil {
		return err
	}
	if instruction == nil {
		s.log.Warn("instruction missing for retry",
			zap.Int64("instruction_id", instructionID))
		return nil
	}

	reason, err := s.attempt(ctx, *instruction)
	if err != nil {
		sentry.CaptureException(err)
		return err
	}
	if reason != "" {
		failure.FailureReason = reason
		failure.UpdatedAt = s.clock.Now()
		s.metrics.RecordDowngradeFailure(ctx, reason)
		return s.repo.UpdateFailure(ctx, s.db, failure)
	}
	return s.finishSuccess(ctx, *instruction)
}

// RetryUnresolved re-attempts every unresolved, unskipped failure. No
// retry cutoff is enforced here; that policy belongs to the scheduler.
func (s *Service) RetryUnresolved(ctx context.Context, limit int) error {
	failures, err := s.repo.UnresolvedFailures(ctx, s.db, limit)
	if err != nil {
		return err
	}
	for _, failure := range failures {
		if err := s.RetryDowngrade(ctx, failure.ID, failure.InstructionID); err != nil {
			continue
		}
	}
	return nil
}

// attempt runs criteria, monotonicity and commit. It returns a failure
// reason for precondition violations and an error for everything
// unexpected.
func (s *Service) attempt(ctx context.Context, instruction domain.CustomerGraduationInstruction) (string, error) {
	today := s.clock.Now()

	criteria, active, err := s.flags.DowngradeCriteria(ctx)
	if err != nil {
		return "", err
	}
	if active {
		if criteria.AccountCheckEnabled {
			account, err := s.accountRepo.FindByID(ctx, s.db, instruction.AccountID)
			if err != nil {
				return "", err
			}
			if account == nil {
				return domain.ReasonAccountNotFound, nil
			}
		}
		if criteria.CoolOffCheckEnabled {
			since := today.AddDate(0, 0, -criteria.NextPeriodDays)
			recent, err := s.ledgerSvc.LatestChangeWithin(ctx, s.db, instruction.AccountID, since)
			if err != nil {
				return "", err
			}
			if recent {
				return domain.ReasonCoolOff, nil
			}
		}
	}

	instructionID := instruction.ID
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var cur accountdomain.CreditLimit
		if err := pkgdb.WithRowLock(tx.WithContext(ctx)).
			Where("account_id = ?", instruction.AccountID).
			Limit(1).
			Find(&cur).Error; err != nil {
			return err
		}
		if cur.ID == 0 {
			return ledgerdomain.ErrCreditLimitNotFound
		}
		if instruction.NewSetLimit >= cur.SetLimit {
			return ledgerdomain.ErrSetLimitViolation
		}
		if instruction.NewMaxLimit > cur.MaxLimit {
			return ledgerdomain.ErrMaxLimitViolation
		}

		_, err := s.ledgerSvc.ApplyLimitChange(ctx, tx, ledgerdomain.LimitChange{
			AccountID:     instruction.AccountID,
			CustomerID:    instruction.CustomerID,
			Current:       cur,
			NewSetLimit:   instruction.NewSetLimit,
			NewMaxLimit:   instruction.NewMaxLimit,
			Kind:          ledgerdomain.ChangeKindDowngrade,
			InstructionID: &instructionID,
			Today:         today,
		})
		return err
	})
	switch {
	case err == nil:
		return "", nil
	case errors.Is(err, ledgerdomain.ErrCreditLimitNotFound):
		return domain.ReasonCreditLimitNotFound, nil
	case errors.Is(err, ledgerdomain.ErrSetLimitViolation):
		return domain.ReasonSetLimit, nil
	case errors.Is(err, ledgerdomain.ErrMaxLimitViolation):
		return domain.ReasonMaxLimit, nil
	case errors.Is(err, ledgerdomain.ErrLimitInvariant):
		return domain.ReasonLimitInvariant, nil
	default:
		return "", err
	}
}

func (s *Service) recordFailure(ctx context.Context, instructionID int64, reason string) error {
	s.log.Warn("downgrade precondition failed",
		zap.Int64("instruction_id", instructionID),
		zap.String("reason", reason),
	)
	s.metrics.RecordDowngradeFailure(ctx, reason)

	now := s.clock.Now()
	existing, err := s.repo.FindFailureByInstruction(ctx, s.db, instructionID)
	if err != nil {
		return err
	}
	if existing != nil && !existing.IsResolved {
		existing.FailureReason = reason
		existing.UpdatedAt = now
		return s.repo.UpdateFailure(ctx, s.db, existing)
	}
	return s.repo.InsertFailure(ctx, s.db, &domain.FailureRecord{
		ID:            s.genID.Generate(),
		InstructionID: instructionID,
		Type:          domain.FailureTypeDowngrade,
		FailureReason: reason,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}

func (s *Service) finishSuccess(ctx context.Context, instruction domain.CustomerGraduationInstruction) error {
	failure, err := s.repo.FindFailureByInstruction(ctx, s.db, instruction.ID)
	if err != nil {
		return err
	}
	if failure != nil && !failure.IsResolved {
		failure.IsResolved = true
		failure.UpdatedAt = s.clock.Now()
		if err := s.repo.UpdateFailure(ctx, s.db, failure); err != nil {
			return err
		}
	}

	s.publisher.DowngradeAlertInvalidate(ctx, instruction.CustomerID)
	s.metrics.RecordDowngrade(ctx)
	s.log.Info("account downgraded",
		zap.Int64("account_id", instruction.AccountID),
		zap.Int64("instruction_id", instruction.ID),
		zap.Int64("new_set_limit", instruction.NewSetLimit),
	)
	return nil
}
