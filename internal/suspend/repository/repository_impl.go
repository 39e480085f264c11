package repository

import (
	"context"

	"github.com/arthafin/limitengine/internal/suspend/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) LatestSuspend(ctx context.Context, db *gorm.DB, customerID int64) (*domain.CustomerSuspendHistory, error) {
	var suspend domain.CustomerSuspendHistory
	err := db.WithContext(ctx).Raw(
		`SELECT id, customer_id, is_suspended, reason_code, created_at
		 FROM customer_suspend_histories
		 WHERE customer_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		customerID,
	).Scan(&suspend).Error
	if err != nil {
		return nil, err
	}
	if suspend.ID == 0 {
		return nil, nil
	}
	return &suspend, nil
}
