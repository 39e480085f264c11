package domain

import (
	"context"
	"time"

	accountdomain "github.com/arthafin/limitengine/internal/account/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// LimitChange describes one limit mutation to commit. Current must be the
// CreditLimit row as read under the caller's row lock; the whole change is
// applied inside the caller's transaction.
type LimitChange struct {
	AccountID   int64
	CustomerID  int64
	Current     accountdomain.CreditLimit
	NewSetLimit int64
	NewMaxLimit int64
	Kind        ChangeKind

	// Graduation only.
	GraduationType GraduationType

	// Downgrade only.
	InstructionID *int64

	Today time.Time
}

// ChangeResult reports what a commit actually wrote. NoOp means old and
// new values matched for every field: no history rows, no record.
type ChangeResult struct {
	NoOp              bool
	RecordID          snowflake.ID
	MutationID        snowflake.ID
	OldSetLimit       int64
	NewSetLimit       int64
	NewAvailableLimit int64
}

// Service owns every write to limit_histories, graduation_records,
// downgrade_records and account_property_histories.
type Service interface {
	ApplyLimitChange(ctx context.Context, tx *gorm.DB, change LimitChange) (*ChangeResult, error)
	LatestChangeWithin(ctx context.Context, db *gorm.DB, accountID int64, since time.Time) (bool, error)
}
