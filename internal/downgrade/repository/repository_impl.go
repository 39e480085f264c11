package repository

import (
	"context"
	"time"

	"github.com/arthafin/limitengine/internal/downgrade/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindInstruction(ctx context.Context, db *gorm.DB, id int64) (*domain.CustomerGraduationInstruction, error) {
	var instruction domain.CustomerGraduationInstruction
	err := db.WithContext(ctx).Raw(
		`SELECT id, account_id, customer_id, partition_date, old_set_limit, new_set_limit, new_max_limit, is_graduate, created_at
		 FROM customer_graduation_instructions WHERE id = ?`,
		id,
	).Scan(&instruction).Error
	if err != nil {
		return nil, err
	}
	if instruction.ID == 0 {
		return nil, nil
	}
	return &instruction, nil
}

// PendingInstructions lists downgrade instructions not yet attempted: no
// downgrade record links back to them and no failure record exists yet.
// Failed instructions are picked up by the retry job instead.
func (r *repo) PendingInstructions(ctx context.Context, db *gorm.DB, asOf time.Time, limit int) ([]domain.CustomerGraduationInstruction, error) {
	var instructions []domain.CustomerGraduationInstruction
	err := db.WithContext(ctx).Raw(
		`SELECT i.id, i.account_id, i.customer_id, i.partition_date, i.old_set_limit, i.new_set_limit, i.new_max_limit, i.is_graduate, i.created_at
		 FROM customer_graduation_instructions i
		 WHERE i.is_graduate = ?
		   AND i.partition_date <= ?
		   AND NOT EXISTS (
				SELECT 1 FROM downgrade_records d WHERE d.instruction_id = i.id)
		   AND NOT EXISTS (
				SELECT 1 FROM failure_records f WHERE f.instruction_id = i.id)
		 ORDER BY i.partition_date, i.id
		 LIMIT ?`,
		false,
		asOf,
		limit,
	).Scan(&instructions).Error
	if err != nil {
		return nil, err
	}
	return instructions, nil
}

func (r *repo) FindFailure(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.FailureRecord, error) {
	var failure domain.FailureRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, instruction_id, type, retries, is_resolved, skipped, failure_reason, created_at, updated_at
		 FROM failure_records WHERE id = ?`,
		id,
	).Scan(&failure).Error
	if err != nil {
		return nil, err
	}
	if failure.ID == 0 {
		return nil, nil
	}
	return &failure, nil
}

func (r *repo) FindFailureByInstruction(ctx context.Context, db *gorm.DB, instructionID int64) (*domain.FailureRecord, error) {
	var failure domain.FailureRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, instruction_id, type, retries, is_resolved, skipped, failure_reason, created_at, updated_at
		 FROM failure_records
		 WHERE instruction_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		instructionID,
	).Scan(&failure).Error
	if err != nil {
		return nil, err
	}
	if failure.ID == 0 {
		return nil, nil
	}
	return &failure, nil
}

func (r *repo) InsertFailure(ctx context.Context, db *gorm.DB, failure *domain.FailureRecord) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO failure_records (id, instruction_id, type, retries, is_resolved, skipped, failure_reason, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		failure.ID,
		failure.InstructionID,
		string(failure.Type),
		failure.Retries,
		failure.IsResolved,
		failure.Skipped,
		failure.FailureReason,
		failure.CreatedAt,
		failure.UpdatedAt,
	).Error
}

func (r *repo) UpdateFailure(ctx context.Context, db *gorm.DB, failure *domain.FailureRecord) error {
	return db.WithContext(ctx).Exec(
		`UPDATE failure_records
		 SET retries = ?, is_resolved = ?, skipped = ?, failure_reason = ?, updated_at = ?
		 WHERE id = ?`,
		failure.Retries,
		failure.IsResolved,
		failure.Skipped,
		failure.FailureReason,
		failure.UpdatedAt,
		failure.ID,
	).Error
}

func (r *repo) UnresolvedFailures(ctx context.Context, db *gorm.DB, limit int) ([]domain.FailureRecord, error) {
	var failures []domain.FailureRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, instruction_id, type, retries, is_resolved, skipped, failure_reason, created_at, updated_at
		 FROM failure_records
		 WHERE is_resolved = ? AND skipped = ? AND type = ?
		 ORDER BY created_at, id
		 LIMIT ?`,
		false,
		false,
		string(domain.FailureTypeDowngrade),
		limit,
	).Scan(&failures).Error
	if err != nil {
		return nil, err
	}
	return failures, nil
}
