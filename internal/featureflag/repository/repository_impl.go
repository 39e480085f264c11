package repository

import (
	"context"

	"github.com/arthafin/limitengine/internal/featureflag/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.FeatureSetting, error) {
	var setting domain.FeatureSetting
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, is_active, parameters, created_at, updated_at
		 FROM feature_settings WHERE code = ?`,
		code,
	).Scan(&setting).Error
	if err != nil {
		return nil, err
	}
	if setting.ID == 0 {
		return nil, nil
	}
	return &setting, nil
}
