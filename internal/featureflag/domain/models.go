package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Well-known feature setting codes.
const (
	CodeGraduationRuleSet    = "graduation_regular_customer"
	CodeGraduationFDCCheck   = "graduation_fdc_check"
	CodeDowngradeCriteria    = "downgrade_criteria"
	CodeCustomerSuspendCache = "customer_suspend_cache"
	CodeSuspendReasonMapping = "suspend_reason_mapping"
	CodePremiumScoreArea     = "graduation_premium_score_area"
)

// FeatureSetting is a runtime business knob stored as a JSON parameter
// blob. Settings are re-read at the start of each invocation, never cached
// by the engine itself.
type FeatureSetting struct {
	ID         snowflake.ID      `gorm:"primaryKey"`
	Code       string            `gorm:"type:text;not null;uniqueIndex"`
	IsActive   bool              `gorm:"not null;default:false"`
	Parameters datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (FeatureSetting) TableName() string { return "feature_settings" }

// GraduationRuleSet holds the eligibility thresholds for a graduation run.
type GraduationRuleSet struct {
	MaxGracePayment                 int
	MaxLatePayment                  int
	MaxNotPaidPayment               int
	MinPercentagePaidPerCreditLimit float64
	MinPaidOffLoan                  int
}

// DowngradeCriteria holds the downgrade precondition toggles.
type DowngradeCriteria struct {
	AccountCheckEnabled bool
	CoolOffCheckEnabled bool
	NextPeriodDays      int
}

// SuspendCacheSettings holds the suspend-gate cache TTL.
type SuspendCacheSettings struct {
	TTL time.Duration
}

type Repository interface {
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*FeatureSetting, error)
}

// Service exposes typed, validated views over feature settings. A missing
// or inactive setting is reported through the bool, never as an error;
// malformed parameters fail fast.
type Service interface {
	GraduationRuleSet(ctx context.Context) (GraduationRuleSet, bool, error)
	FDCCheckEnabled(ctx context.Context) (bool, error)
	DowngradeCriteria(ctx context.Context) (DowngradeCriteria, bool, error)
	SuspendCacheSettings(ctx context.Context) (SuspendCacheSettings, error)
	SuspendReasonMapping(ctx context.Context) (map[string]string, bool, error)
	PremiumScoreArea(ctx context.Context) (float64, error)
}

var (
	ErrMissingParameter = errors.New("missing_feature_parameter")
	ErrInvalidParameter = errors.New("invalid_feature_parameter")
)
