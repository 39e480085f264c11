package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Account status values the engine cares about. The account lifecycle is
// owned by the account service; rows here are read, never created.
const (
	AccountStatusActive    = "active"
	AccountStatusSuspended = "suspended"
)

// Payment status values.
const (
	PaymentStatusPaidOnTime      = "paid_on_time"
	PaymentStatusPaidWithinGrace = "paid_within_grace"
	PaymentStatusPaidLate        = "paid_late"
	PaymentStatusNotDue          = "not_due"
	PaymentStatusOverdue         = "overdue"
)

// Loan status values.
const (
	LoanStatusActive  = "active"
	LoanStatusPaidOff = "paid_off"
)

// Application status values.
const (
	ApplicationStatusApproved = "approved"
)

type Account struct {
	ID         int64     `gorm:"primaryKey"`
	CustomerID int64     `gorm:"not null;index"`
	Status     string    `gorm:"type:text;not null"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Account) TableName() string { return "accounts" }

// CreditLimit is the mutable limit state for an account. The engine
// mutates it in place under a row lock, always keeping
// used_limit <= set_limit <= max_limit. MaxLimitPreMatrix is the ceiling
// recorded at initial credit-limit generation; graduation never raises a
// limit past it.
type CreditLimit struct {
	ID                int64     `gorm:"primaryKey"`
	AccountID         int64     `gorm:"not null;uniqueIndex"`
	AvailableLimit    int64     `gorm:"not null"`
	MaxLimit          int64     `gorm:"not null"`
	SetLimit          int64     `gorm:"not null"`
	UsedLimit         int64     `gorm:"not null"`
	MaxLimitPreMatrix int64     `gorm:"not null;default:0"`
	UpdatedAt         time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (CreditLimit) TableName() string { return "credit_limits" }

// AccountProperty carries the entry-level flag and the start of the
// account's current graduation window.
type AccountProperty struct {
	ID                 int64      `gorm:"primaryKey"`
	AccountID          int64      `gorm:"not null;uniqueIndex"`
	IsEntryLevel       bool       `gorm:"not null;default:true"`
	Pgood              float64    `gorm:"not null;default:0"`
	LastGraduationDate *time.Time `gorm:""`
	UpdatedAt          time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (AccountProperty) TableName() string { return "account_properties" }

type Payment struct {
	ID         int64      `gorm:"primaryKey"`
	AccountID  int64      `gorm:"not null;index"`
	LoanID     int64      `gorm:"not null;index"`
	Status     string     `gorm:"type:text;not null"`
	DueDate    time.Time  `gorm:"not null;index"`
	PaidDate   *time.Time `gorm:"index"`
	DueAmount  int64      `gorm:"not null"`
	PaidAmount int64      `gorm:"not null;default:0"`
}

func (Payment) TableName() string { return "payments" }

type Loan struct {
	ID          int64      `gorm:"primaryKey"`
	AccountID   int64      `gorm:"not null;index"`
	Status      string     `gorm:"type:text;not null"`
	Amount      int64      `gorm:"not null"`
	PaidOffDate *time.Time `gorm:"index"`
	CreatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Loan) TableName() string { return "loans" }

type Application struct {
	ID        int64     `gorm:"primaryKey"`
	AccountID int64     `gorm:"not null;index"`
	Status    string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Application) TableName() string { return "applications" }

// RegularCustomerAccount is one row of the candidate materialized view,
// refreshed out-of-band by a collaborator.
type RegularCustomerAccount struct {
	AccountID          int64      `gorm:"primaryKey"`
	CustomerID         int64      `gorm:"not null"`
	LastGraduationDate *time.Time `gorm:""`
}

func (RegularCustomerAccount) TableName() string { return "regular_customer_accounts" }

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Account, error)
	CreditLimits(ctx context.Context, db *gorm.DB, accountIDs []int64) (map[int64]CreditLimit, error)
	Properties(ctx context.Context, db *gorm.DB, accountIDs []int64) (map[int64]AccountProperty, error)
	LatestApprovedApplication(ctx context.Context, db *gorm.DB, accountID int64) (*Application, error)
	CandidateShard(ctx context.Context, db *gorm.DB, shard int) ([]RegularCustomerAccount, error)
}
