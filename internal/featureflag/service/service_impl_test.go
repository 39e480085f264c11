package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/arthafin/limitengine/internal/featureflag/domain"
	"github.com/arthafin/limitengine/internal/featureflag/repository"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupFlags(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.FeatureSetting{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{DB: db, Log: zap.NewNop(), Repo: repository.Provide()})
	return svc, db, node
}

func TestGraduationRuleSetParsed(t *testing.T) {
	svc, db, node := setupFlags(t)

	require.NoError(t, db.Create(&domain.FeatureSetting{
		ID:       node.Generate(),
		Code:     domain.CodeGraduationRuleSet,
		IsActive: true,
		Parameters: datatypes.JSONMap{
			"max_grace_payment":                    1,
			"max_late_payment":                     0,
			"max_not_paid_payment":                 0,
			"min_percentage_paid_per_credit_limit": 100.0,
			"min_paid_off_loan":                    1,
		},
	}).Error)

	rules, active, err := svc.GraduationRuleSet(context.Background())
	require.NoError(t, err)
	assert.True(t, active)
	assert.Equal(t, 1, rules.MaxGracePayment)
	assert.Equal(t, 0, rules.MaxLatePayment)
	assert.Equal(t, 100.0, rules.MinPercentagePaidPerCreditLimit)
	assert.Equal(t, 1, rules.MinPaidOffLoan)
}

func TestGraduationRuleSetMissingSetting(t *testing.T) {
	svc, _, _ := setupFlags(t)

	_, active, err := svc.GraduationRuleSet(context.Background())
	require.NoError(t, err)
	assert.False(t, active)
}

func TestGraduationRuleSetInactive(t *testing.T) {
	svc, db, node := setupFlags(t)

	require.NoError(t, db.Create(&domain.FeatureSetting{
		ID:   node.Generate(),
		Code: domain.CodeGraduationRuleSet,
		Parameters: datatypes.JSONMap{
			"max_grace_payment": 1,
		},
	}).Error)

	_, active, err := svc.GraduationRuleSet(context.Background())
	require.NoError(t, err)
	assert.False(t, active)
}

func TestGraduationRuleSetMissingParameter(t *testing.T) {
	svc, db, node := setupFlags(t)

	require.NoError(t, db.Create(&domain.FeatureSetting{
		ID:       node.Generate(),
		Code:     domain.CodeGraduationRuleSet,
		IsActive: true,
		Parameters: datatypes.JSONMap{
			"max_grace_payment": 1,
		},
	}).Error)

	_, _, err := svc.GraduationRuleSet(context.Background())
	assert.ErrorIs(t, err, domain.ErrMissingParameter)
}

func TestGraduationRuleSetInvalidParameter(t *testing.T) {
	svc, db, node := setupFlags(t)

	require.NoError(t, db.Create(&domain.FeatureSetting{
		ID:       node.Generate(),
		Code:     domain.CodeGraduationRuleSet,
		IsActive: true,
		Parameters: datatypes.JSONMap{
			"max_grace_payment":                    "one",
			"max_late_payment":                     0,
			"max_not_paid_payment":                 0,
			"min_percentage_paid_per_credit_limit": 100,
			"min_paid_off_loan":                    1,
		},
	}).Error)

	_, _, err := svc.GraduationRuleSet(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestFloatParamScannedNumber(t *testing.T) {
	// Parameters read back from the database arrive as json.Number,
	// not float64.
	setting := &domain.FeatureSetting{
		Code: domain.CodeGraduationRuleSet,
		Parameters: datatypes.JSONMap{
			"max_grace_payment": json.Number("2"),
			"threshold":         json.Number("0.85"),
			"garbled":           json.Number("not-a-number"),
		},
	}

	value, err := floatParam(setting, "max_grace_payment")
	require.NoError(t, err)
	assert.Equal(t, 2.0, value)

	value, err = floatParam(setting, "threshold")
	require.NoError(t, err)
	assert.Equal(t, 0.85, value)

	_, err = floatParam(setting, "garbled")
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestDowngradeCriteriaParsed(t *testing.T) {
	svc, db, node := setupFlags(t)

	require.NoError(t, db.Create(&domain.FeatureSetting{
		ID:       node.Generate(),
		Code:     domain.CodeDowngradeCriteria,
		IsActive: true,
		Parameters: datatypes.JSONMap{
			"account_check_enabled":  true,
			"cool_off_check_enabled": true,
			"next_period_days":       2,
		},
	}).Error)

	criteria, active, err := svc.DowngradeCriteria(context.Background())
	require.NoError(t, err)
	assert.True(t, active)
	assert.True(t, criteria.AccountCheckEnabled)
	assert.True(t, criteria.CoolOffCheckEnabled)
	assert.Equal(t, 2, criteria.NextPeriodDays)
}

func TestFDCCheckEnabled(t *testing.T) {
	svc, db, node := setupFlags(t)

	enabled, err := svc.FDCCheckEnabled(context.Background())
	require.NoError(t, err)
	assert.False(t, enabled)

	require.NoError(t, db.Create(&domain.FeatureSetting{
		ID:       node.Generate(),
		Code:     domain.CodeGraduationFDCCheck,
		IsActive: true,
	}).Error)

	enabled, err = svc.FDCCheckEnabled(context.Background())
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestSuspendCacheSettingsDefault(t *testing.T) {
	svc, _, _ := setupFlags(t)

	settings, err := svc.SuspendCacheSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, settings.TTL)
}

func TestSuspendCacheSettingsConfigured(t *testing.T) {
	svc, db, node := setupFlags(t)

	require.NoError(t, db.Create(&domain.FeatureSetting{
		ID:       node.Generate(),
		Code:     domain.CodeCustomerSuspendCache,
		IsActive: true,
		Parameters: datatypes.JSONMap{
			"cache_ttl_hours": 6,
		},
	}).Error)

	settings, err := svc.SuspendCacheSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6*time.Hour, settings.TTL)
}

func TestSuspendCacheSettingsRejectsNonPositiveTTL(t *testing.T) {
	svc, db, node := setupFlags(t)

	require.NoError(t, db.Create(&domain.FeatureSetting{
		ID:       node.Generate(),
		Code:     domain.CodeCustomerSuspendCache,
		IsActive: true,
		Parameters: datatypes.JSONMap{
			"cache_ttl_hours": 0,
		},
	}).Error)

	_, err := svc.SuspendCacheSettings(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestPremiumScoreAreaDefault(t *testing.T) {
	svc, _, _ := setupFlags(t)

	threshold, err := svc.PremiumScoreArea(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.85, threshold)
}

func TestPremiumScoreAreaConfigured(t *testing.T) {
	svc, db, node := setupFlags(t)

	require.NoError(t, db.Create(&domain.FeatureSetting{
		ID:       node.Generate(),
		Code:     domain.CodePremiumScoreArea,
		IsActive: true,
		Parameters: datatypes.JSONMap{
			"threshold": 0.75,
		},
	}).Error)

	threshold, err := svc.PremiumScoreArea(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.75, threshold)
}

func TestPremiumScoreAreaRejectsOutOfRange(t *testing.T) {
	svc, db, node := setupFlags(t)

	require.NoError(t, db.Create(&domain.FeatureSetting{
		ID:       node.Generate(),
		Code:     domain.CodePremiumScoreArea,
		IsActive: true,
		Parameters: datatypes.JSONMap{
			"threshold": 1.5,
		},
	}).Error)

	_, err := svc.PremiumScoreArea(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestSuspendReasonMapping(t *testing.T) {
	svc, db, node := setupFlags(t)

	require.NoError(t, db.Create(&domain.FeatureSetting{
		ID:       node.Generate(),
		Code:     domain.CodeSuspendReasonMapping,
		IsActive: true,
		Parameters: datatypes.JSONMap{
			"odin_fraud":    "account flagged for unusual activity",
			"late_payments": "account under payment review",
		},
	}).Error)

	mapping, active, err := svc.SuspendReasonMapping(context.Background())
	require.NoError(t, err)
	assert.True(t, active)
	assert.Equal(t, "account under payment review", mapping["late_payments"])
}
