package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// LimitField names the CreditLimit columns recorded in history rows.
type LimitField string

const (
	FieldAvailableLimit LimitField = "available_limit"
	FieldMaxLimit       LimitField = "max_limit"
	FieldSetLimit       LimitField = "set_limit"
)

// GraduationType tags a graduation record.
type GraduationType string

const (
	GraduationTypeEntryLevel      GraduationType = "entry_level"
	GraduationTypeRegularCustomer GraduationType = "regular_customer"
)

// ChangeKind distinguishes graduations from downgrades.
type ChangeKind string

const (
	ChangeKindGraduation ChangeKind = "graduation"
	ChangeKindDowngrade  ChangeKind = "downgrade"
)

// LimitHistory is an immutable record of one CreditLimit field mutation.
// Rows are written only when the field's value actually changed, and are
// never updated or deleted. MutationID groups the rows of one commit.
type LimitHistory struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	AccountID  int64        `gorm:"not null;index"`
	FieldName  LimitField   `gorm:"type:text;not null"`
	ValueOld   int64        `gorm:"not null"`
	ValueNew   int64        `gorm:"not null"`
	MutationID snowflake.ID `gorm:"not null;index"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (LimitHistory) TableName() string { return "limit_histories" }

// AccountPropertyHistory audits flips of is_entry_level and
// last_graduation_date. Same change-only, append-only semantics as
// LimitHistory.
type AccountPropertyHistory struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	AccountID int64        `gorm:"not null;index"`
	FieldName string       `gorm:"type:text;not null"`
	ValueOld  string       `gorm:"type:text;not null"`
	ValueNew  string       `gorm:"type:text;not null"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (AccountPropertyHistory) TableName() string { return "account_property_histories" }

// GraduationRecord is one completed graduation. At most one row per
// account carries latest_flag = true; the previous latest row is cleared
// inside the same transaction that inserts the new one.
type GraduationRecord struct {
	ID                      snowflake.ID   `gorm:"primaryKey"`
	AccountID               int64          `gorm:"not null;index"`
	CustomerID              int64          `gorm:"not null;index"`
	GraduationType          GraduationType `gorm:"type:text;not null"`
	LatestFlag              bool           `gorm:"not null;default:false;index"`
	AvailableLimitHistoryID *snowflake.ID  `gorm:""`
	MaxLimitHistoryID       *snowflake.ID  `gorm:""`
	SetLimitHistoryID       *snowflake.ID  `gorm:""`
	GraduationDate          time.Time      `gorm:"not null"`
	CreatedAt               time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (GraduationRecord) TableName() string { return "graduation_records" }

// DowngradeRecord mirrors GraduationRecord for decreases, linked to the
// originating instruction when one exists.
type DowngradeRecord struct {
	ID                      snowflake.ID  `gorm:"primaryKey"`
	AccountID               int64         `gorm:"not null;index"`
	CustomerID              int64         `gorm:"not null;index"`
	LatestFlag              bool          `gorm:"not null;default:false;index"`
	InstructionID           *int64        `gorm:"index"`
	AvailableLimitHistoryID *snowflake.ID `gorm:""`
	MaxLimitHistoryID       *snowflake.ID `gorm:""`
	SetLimitHistoryID       *snowflake.ID `gorm:""`
	DowngradeDate           time.Time     `gorm:"not null"`
	CreatedAt               time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (DowngradeRecord) TableName() string { return "downgrade_records" }

var (
	ErrCreditLimitNotFound = errors.New("credit_limit_not_found")
	ErrSetLimitViolation   = errors.New("set_limit_violation")
	ErrMaxLimitViolation   = errors.New("max_limit_violation")
	ErrLimitInvariant      = errors.New("limit_invariant_violation")
)
