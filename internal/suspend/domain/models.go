package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// DefaultLockReason is shown when no reason mapping is configured for a
// suspend record's reason code.
const DefaultLockReason = "account_under_review"

// CustomerSuspendHistory is the collaborator-owned suspend audit trail;
// the gate only ever reads the latest row.
type CustomerSuspendHistory struct {
	ID          int64     `gorm:"primaryKey"`
	CustomerID  int64     `gorm:"not null;index"`
	IsSuspended bool      `gorm:"not null"`
	ReasonCode  string    `gorm:"type:text;not null"`
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (CustomerSuspendHistory) TableName() string { return "customer_suspend_histories" }

// SuspendStatus is the gate's answer for one customer.
type SuspendStatus struct {
	IsSuspended bool    `json:"is_suspended"`
	LockReason  *string `json:"lock_reason,omitempty"`
}

type Repository interface {
	LatestSuspend(ctx context.Context, db *gorm.DB, customerID int64) (*CustomerSuspendHistory, error)
}

// Gate answers whether loan disbursement should be short-circuited for a
// customer. Answers are cached; a cache hit never re-queries the database.
type Gate interface {
	Status(ctx context.Context, customerID int64) (SuspendStatus, error)
	Invalidate(ctx context.Context, customerID int64) error
}
