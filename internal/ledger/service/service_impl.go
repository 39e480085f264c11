package service

import (
	"context"
	"fmt"
	"time"

	ledgerdomain "github.com/arthafin/limitengine/internal/ledger/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		log:   p.Log.Named("ledger.service"),
		genID: p.GenID,
	}
}

type fieldChange struct {
	field    ledgerdomain.LimitField
	valueOld int64
	valueNew int64
}

// ApplyLimitChange applies one graduation or downgrade to the locked
// CreditLimit row and appends the audit trail. All writes happen in the
// caller's transaction; a change where nothing moved writes nothing.
func (s *Service) ApplyLimitChange(ctx context.Context, tx *gorm.DB, change ledgerdomain.LimitChange) (*ledgerdomain.ChangeResult, error) {
	cur := change.Current
	if cur.AccountID != change.AccountID {
		return nil, ledgerdomain.ErrCreditLimitNotFound
	}

	newAvailable := cur.AvailableLimit + (change.NewSetLimit - cur.SetLimit)
	if cur.UsedLimit > change.NewSetLimit || change.NewSetLimit > change.NewMaxLimit {
		return nil, ledgerdomain.ErrLimitInvariant
	}

	var changes []fieldChange
	if newAvailable != cur.AvailableLimit {
		changes = append(changes, fieldChange{ledgerdomain.FieldAvailableLimit, cur.AvailableLimit, newAvailable})
	}
	if change.NewMaxLimit != cur.MaxLimit {
		changes = append(changes, fieldChange{ledgerdomain.FieldMaxLimit, cur.MaxLimit, change.NewMaxLimit})
	}
	if change.NewSetLimit != cur.SetLimit {
		changes = append(changes, fieldChange{ledgerdomain.FieldSetLimit, cur.SetLimit, change.NewSetLimit})
	}
	if len(changes) == 0 {
		return &ledgerdomain.ChangeResult{
			NoOp:              true,
			OldSetLimit:       cur.SetLimit,
			NewSetLimit:       cur.SetLimit,
			NewAvailableLimit: cur.AvailableLimit,
		}, nil
	}

	now := time.Now().UTC()
	mutationID := s.genID.Generate()

	if err := tx.WithContext(ctx).Exec(
		`UPDATE credit_limits
		 SET available_limit = ?, max_limit = ?, set_limit = ?, updated_at = ?
		 WHERE account_id = ?`,
		newAvailable,
		change.NewMaxLimit,
		change.NewSetLimit,
		now,
		change.AccountID,
	).Error; err != nil {
		return nil, err
	}

	historyIDs := make(map[ledgerdomain.LimitField]snowflake.ID, len(changes))
	for _, fc := range changes {
		historyID := s.genID.Generate()
		if err := tx.WithContext(ctx).Exec(
			`INSERT INTO limit_histories (id, account_id, field_name, value_old, value_new, mutation_id, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			historyID,
			change.AccountID,
			string(fc.field),
			fc.valueOld,
			fc.valueNew,
			mutationID,
			now,
		).Error; err != nil {
			return nil, err
		}
		historyIDs[fc.field] = historyID
	}

	recordID := s.genID.Generate()
	switch change.Kind {
	case ledgerdomain.ChangeKindGraduation:
		if err := s.insertGraduationRecord(ctx, tx, recordID, change, historyIDs, now); err != nil {
			return nil, err
		}
		if err := s.advanceAccountProperty(ctx, tx, change, now); err != nil {
			return nil, err
		}
	case ledgerdomain.ChangeKindDowngrade:
		if err := s.insertDowngradeRecord(ctx, tx, recordID, change, historyIDs, now); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown change kind %q", change.Kind)
	}

	return &ledgerdomain.ChangeResult{
		RecordID:          recordID,
		MutationID:        mutationID,
		OldSetLimit:       cur.SetLimit,
		NewSetLimit:       change.NewSetLimit,
		NewAvailableLimit: newAvailable,
	}, nil
}

func (s *Service) insertGraduationRecord(
	ctx context.Context,
	tx *gorm.DB,
	recordID snowflake.ID,
	change ledgerdomain.LimitChange,
	historyIDs map[ledgerdomain.LimitField]snowflake.ID,
	now time.Time,
) error {
	if err := tx.WithContext(ctx).Exec(
		`UPDATE graduation_records SET latest_flag = ? WHERE account_id = ? AND latest_flag = ?`,
		false,
		change.AccountID,
		true,
	).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).Exec(
		`INSERT INTO graduation_records (
			id, account_id, customer_id, graduation_type, latest_flag,
			available_limit_history_id, max_limit_history_id, set_limit_history_id,
			graduation_date, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		recordID,
		change.AccountID,
		change.CustomerID,
		string(change.GraduationType),
		true,
		historyRef(historyIDs, ledgerdomain.FieldAvailableLimit),
		historyRef(historyIDs, ledgerdomain.FieldMaxLimit),
		historyRef(historyIDs, ledgerdomain.FieldSetLimit),
		change.Today,
		now,
	).Error
}

func (s *Service) insertDowngradeRecord(
	ctx context.Context,
	tx *gorm.DB,
	recordID snowflake.ID,
	change ledgerdomain.LimitChange,
	historyIDs map[ledgerdomain.LimitField]snowflake.ID,
	now time.Time,
) error {
	if err := tx.WithContext(ctx).Exec(
		`UPDATE downgrade_records SET latest_flag = ? WHERE account_id = ? AND latest_flag = ?`,
		false,
		change.AccountID,
		true,
	).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).Exec(
		`INSERT INTO downgrade_records (
			id, account_id, customer_id, latest_flag, instruction_id,
			available_limit_history_id, max_limit_history_id, set_limit_history_id,
			downgrade_date, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		recordID,
		change.AccountID,
		change.CustomerID,
		true,
		change.InstructionID,
		historyRef(historyIDs, ledgerdomain.FieldAvailableLimit),
		historyRef(historyIDs, ledgerdomain.FieldMaxLimit),
		historyRef(historyIDs, ledgerdomain.FieldSetLimit),
		change.Today,
		now,
	).Error
}

// advanceAccountProperty flips is_entry_level on the first graduation and
// moves the window start, auditing both only when the value really moved.
func (s *Service) advanceAccountProperty(ctx context.Context, tx *gorm.DB, change ledgerdomain.LimitChange, now time.Time) error {
	var property struct {
		ID                 int64
		IsEntryLevel       bool
		LastGraduationDate *time.Time
	}
	err := tx.WithContext(ctx).Raw(
		`SELECT id, is_entry_level, last_graduation_date
		 FROM account_properties WHERE account_id = ?`,
		change.AccountID,
	).Scan(&property).Error
	if err != nil {
		return err
	}
	if property.ID == 0 {
		s.log.Warn("account property missing during graduation commit",
			zap.Int64("account_id", change.AccountID))
		return nil
	}

	if property.IsEntryLevel {
		if err := s.insertPropertyHistory(ctx, tx, change.AccountID, "is_entry_level", "true", "false", now); err != nil {
			return err
		}
		s.log.Info("entry level flag cleared", zap.Int64("account_id", change.AccountID))
	}

	oldDate := ""
	if property.LastGraduationDate != nil {
		oldDate = property.LastGraduationDate.Format("2006-01-02")
	}
	newDate := change.Today.Format("2006-01-02")
	if oldDate != newDate {
		if err := s.insertPropertyHistory(ctx, tx, change.AccountID, "last_graduation_date", oldDate, newDate, now); err != nil {
			return err
		}
	}

	return tx.WithContext(ctx).Exec(
		`UPDATE account_properties
		 SET is_entry_level = ?, last_graduation_date = ?, updated_at = ?
		 WHERE account_id = ?`,
		false,
		change.Today,
		now,
		change.AccountID,
	).Error
}

func (s *Service) insertPropertyHistory(ctx context.Context, tx *gorm.DB, accountID int64, field, valueOld, valueNew string, now time.Time) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO account_property_histories (id, account_id, field_name, value_old, value_new, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.genID.Generate(),
		accountID,
		field,
		valueOld,
		valueNew,
		now,
	).Error
}

// LatestChangeWithin reports whether the account's current latest
// graduation or downgrade record was created on or after since. Used by
// the downgrade cool-off gate.
func (s *Service) LatestChangeWithin(ctx context.Context, db *gorm.DB, accountID int64, since time.Time) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT
			(SELECT COUNT(1) FROM graduation_records
			  WHERE account_id = ? AND latest_flag = ? AND created_at >= ?)
			+
			(SELECT COUNT(1) FROM downgrade_records
			  WHERE account_id = ? AND latest_flag = ? AND created_at >= ?)`,
		accountID, true, since,
		accountID, true, since,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func historyRef(historyIDs map[ledgerdomain.LimitField]snowflake.ID, field ledgerdomain.LimitField) *snowflake.ID {
	id, ok := historyIDs[field]
	if !ok {
		return nil
	}
	return &id
}
