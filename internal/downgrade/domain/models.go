package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// FailureType tags which pipeline produced a failure record.
type FailureType string

const (
	FailureTypeGraduation FailureType = "graduation"
	FailureTypeDowngrade  FailureType = "downgrade"
)

// Failure reasons recorded on precondition violations. A violation is
// never silently corrected; the specific reason is kept for operators.
const (
	ReasonAccountNotFound     = "account_not_found"
	ReasonCreditLimitNotFound = "credit_limit_not_found"
	ReasonCoolOff             = "cool_off_period"
	ReasonSetLimit            = "set_limit_violation"
	ReasonMaxLimit            = "max_limit_violation"
	ReasonLimitInvariant      = "limit_invariant_violation"
)

// CustomerGraduationInstruction is a precomputed decision produced by the
// offline scoring collaborator. Rows with is_graduate = false drive the
// downgrade pipeline; the engine consumes them, never creates them.
type CustomerGraduationInstruction struct {
	ID            int64     `gorm:"primaryKey"`
	AccountID     int64     `gorm:"not null;index"`
	CustomerID    int64     `gorm:"not null;index"`
	PartitionDate time.Time `gorm:"not null;index"`
	OldSetLimit   int64     `gorm:"not null"`
	NewSetLimit   int64     `gorm:"not null"`
	NewMaxLimit   int64     `gorm:"not null"`
	IsGraduate    bool      `gorm:"not null;default:false"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (CustomerGraduationInstruction) TableName() string {
	return "customer_graduation_instructions"
}

// FailureRecord tracks a failed orchestration attempt. Created on first
// failure, updated on every retry, never deleted; success marks it
// resolved and keeps the row.
type FailureRecord struct {
	ID            snowflake.ID `gorm:"primaryKey"`
	InstructionID int64        `gorm:"not null;index"`
	Type          FailureType  `gorm:"type:text;not null"`
	Retries       int          `gorm:"not null;default:0"`
	IsResolved    bool         `gorm:"not null;default:false;index"`
	Skipped       bool         `gorm:"not null;default:false"`
	FailureReason string       `gorm:"type:text;not null"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (FailureRecord) TableName() string { return "failure_records" }

type Repository interface {
	FindInstruction(ctx context.Context, db *gorm.DB, id int64) (*CustomerGraduationInstruction, error)
	PendingInstructions(ctx context.Context, db *gorm.DB, asOf time.Time, limit int) ([]CustomerGraduationInstruction, error)
	FindFailure(ctx context.Context, db *gorm.DB, id snowflake.ID) (*FailureRecord, error)
	FindFailureByInstruction(ctx context.Context, db *gorm.DB, instructionID int64) (*FailureRecord, error)
	InsertFailure(ctx context.Context, db *gorm.DB, failure *FailureRecord) error
	UpdateFailure(ctx context.Context, db *gorm.DB, failure *FailureRecord) error
	UnresolvedFailures(ctx context.Context, db *gorm.DB, limit int) ([]FailureRecord, error)
}

// Service consumes downgrade instructions and runs retry bookkeeping.
type Service interface {
	ProcessInstruction(ctx context.Context, instruction CustomerGraduationInstruction) error
	ProcessPending(ctx context.Context, asOf time.Time, limit int) error
	RetryDowngrade(ctx context.Context, failureID snowflake.ID, instructionID int64) error
	RetryUnresolved(ctx context.Context, limit int) error
}
