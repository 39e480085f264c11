package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/arthafin/limitengine/internal/featureflag/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultSuspendCacheTTL = 24 * time.Hour

	// defaultPremiumScoreArea is the bucketed-score ceiling for the
	// less-risky tier when no override setting is configured.
	defaultPremiumScoreArea = 0.85
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("featureflag.service"),
		repo: p.Repo,
	}
}

func (s *Service) GraduationRuleSet(ctx context.Context) (domain.GraduationRuleSet, bool, error) {
	setting, err := s.repo.FindByCode(ctx, s.db, domain.CodeGraduationRuleSet)
	if err != nil {
		return domain.GraduationRuleSet{}, false, err
	}
	if setting == nil || !setting.IsActive {
		return domain.GraduationRuleSet{}, false, nil
	}

	var rules domain.GraduationRuleSet
	if rules.MaxGracePayment, err = intParam(setting, "max_grace_payment"); err != nil {
		return domain.GraduationRuleSet{}, false, err
	}
	if rules.MaxLatePayment, err = intParam(setting, "max_late_payment"); err != nil {
		return domain.GraduationRuleSet{}, false, err
	}
	if rules.MaxNotPaidPayment, err = intParam(setting, "max_not_paid_payment"); err != nil {
		return domain.GraduationRuleSet{}, false, err
	}
	if rules.MinPercentagePaidPerCreditLimit, err = floatParam(setting, "min_percentage_paid_per_credit_limit"); err != nil {
		return domain.GraduationRuleSet{}, false, err
	}
	if rules.MinPaidOffLoan, err = intParam(setting, "min_paid_off_loan"); err != nil {
		return domain.GraduationRuleSet{}, false, err
	}
	return rules, true, nil
}

func (s *Service) FDCCheckEnabled(ctx context.Context) (bool, error) {
	setting, err := s.repo.FindByCode(ctx, s.db, domain.CodeGraduationFDCCheck)
	if err != nil {
		return false, err
	}
	return setting != nil && setting.IsActive, nil
}

func (s *Service) DowngradeCriteria(ctx context.Context) (domain.DowngradeCriteria, bool, error) {
	setting, err := s.repo.FindByCode(ctx, s.db, domain.CodeDowngradeCriteria)
	if err != nil {
		return domain.DowngradeCriteria{}, false, err
	}
	if setting == nil || !setting.IsActive {
		return domain.DowngradeCriteria{}, false, nil
	}

	var criteria domain.DowngradeCriteria
	if criteria.AccountCheckEnabled, err = boolParam(setting, "account_check_enabled"); err != nil {
		return domain.DowngradeCriteria{}, false, err
	}
	if criteria.CoolOffCheckEnabled, err = boolParam(setting, "cool_off_check_enabled"); err != nil {
		return domain.DowngradeCriteria{}, false, err
	}
	if criteria.NextPeriodDays, err = intParam(setting, "next_period_days"); err != nil {
		return domain.DowngradeCriteria{}, false, err
	}
	return criteria, true, nil
}

func (s *Service) SuspendCacheSettings(ctx context.Context) (domain.SuspendCacheSettings, error) {
	setting, err := s.repo.FindByCode(ctx, s.db, domain.CodeCustomerSuspendCache)
	if err != nil {
		return domain.SuspendCacheSettings{}, err
	}
	if setting == nil || !setting.IsActive {
		return domain.SuspendCacheSettings{TTL: defaultSuspendCacheTTL}, nil
	}
	hours, err := intParam(setting, "cache_ttl_hours")
	if err != nil {
		return domain.SuspendCacheSettings{}, err
	}
	if hours <= 0 {
		return domain.SuspendCacheSettings{}, fmt.Errorf("%w: cache_ttl_hours must be positive", domain.ErrInvalidParameter)
	}
	return domain.SuspendCacheSettings{TTL: time.Duration(hours) * time.Hour}, nil
}

func (s *Service) SuspendReasonMapping(ctx context.Context) (map[string]string, bool, error) {
	setting, err := s.repo.FindByCode(ctx, s.db, domain.CodeSuspendReasonMapping)
	if err != nil {
		return nil, false, err
	}
	if setting == nil || !setting.IsActive {
		return nil, false, nil
	}
	mapping := make(map[string]string, len(setting.Parameters))
	for code, raw := range setting.Parameters {
		message, ok := raw.(string)
		if !ok {
			return nil, false, fmt.Errorf("%w: %s.%s", domain.ErrInvalidParameter, setting.Code, code)
		}
		mapping[code] = message
	}
	return mapping, true, nil
}

func (s *Service) PremiumScoreArea(ctx context.Context) (float64, error) {
	setting, err := s.repo.FindByCode(ctx, s.db, domain.CodePremiumScoreArea)
	if err != nil {
		return 0, err
	}
	if setting == nil || !setting.IsActive {
		return defaultPremiumScoreArea, nil
	}
	threshold, err := floatParam(setting, "threshold")
	if err != nil {
		return 0, err
	}
	if threshold <= 0 || threshold > 1 {
		return 0, fmt.Errorf("%w: threshold must be in (0, 1]", domain.ErrInvalidParameter)
	}
	return threshold, nil
}

func intParam(setting *domain.FeatureSetting, key string) (int, error) {
	value, err := floatParam(setting, key)
	if err != nil {
		return 0, err
	}
	return int(value), nil
}

func floatParam(setting *domain.FeatureSetting, key string) (float64, error) {
	raw, ok := setting.Parameters[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s.%s", domain.ErrMissingParameter, setting.Code, key)
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		// JSONMap scans numbers back as json.Number, not float64.
		value, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s.%s", domain.ErrInvalidParameter, setting.Code, key)
		}
		return value, nil
	default:
		return 0, fmt.Errorf("%w: %s.%s", domain.ErrInvalidParameter, setting.Code, key)
	}
}

func boolParam(setting *domain.FeatureSetting, key string) (bool, error) {
	raw, ok := setting.Parameters[key]
	if !ok {
		return false, fmt.Errorf("%w: %s.%s", domain.ErrMissingParameter, setting.Code, key)
	}
	value, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s.%s", domain.ErrInvalidParameter, setting.Code, key)
	}
	return value, nil
}
