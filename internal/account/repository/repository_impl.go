package repository

import (
	"context"

	"github.com/arthafin/limitengine/internal/account/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Account, error) {
	var account domain.Account
	err := db.WithContext(ctx).Raw(
		`SELECT id, customer_id, status, created_at, updated_at
		 FROM accounts WHERE id = ?`,
		id,
	).Scan(&account).Error
	if err != nil {
		return nil, err
	}
	if account.ID == 0 {
		return nil, nil
	}
	return &account, nil
}

func (r *repo) CreditLimits(ctx context.Context, db *gorm.DB, accountIDs []int64) (map[int64]domain.CreditLimit, error) {
	if len(accountIDs) == 0 {
		return map[int64]domain.CreditLimit{}, nil
	}
	var rows []domain.CreditLimit
	err := db.WithContext(ctx).Raw(
		`SELECT id, account_id, available_limit, max_limit, set_limit, used_limit, max_limit_pre_matrix, updated_at
		 FROM credit_limits WHERE account_id IN ?`,
		accountIDs,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	limits := make(map[int64]domain.CreditLimit, len(rows))
	for _, row := range rows {
		limits[row.AccountID] = row
	}
	return limits, nil
}

func (r *repo) Properties(ctx context.Context, db *gorm.DB, accountIDs []int64) (map[int64]domain.AccountProperty, error) {
	if len(accountIDs) == 0 {
		return map[int64]domain.AccountProperty{}, nil
	}
	var rows []domain.AccountProperty
	err := db.WithContext(ctx).Raw(
		`SELECT id, account_id, is_entry_level, pgood, last_graduation_date, updated_at
		 FROM account_properties WHERE account_id IN ?`,
		accountIDs,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	properties := make(map[int64]domain.AccountProperty, len(rows))
	for _, row := range rows {
		properties[row.AccountID] = row
	}
	return properties, nil
}

func (r *repo) LatestApprovedApplication(ctx context.Context, db *gorm.DB, accountID int64) (*domain.Application, error) {
	var application domain.Application
	err := db.WithContext(ctx).Raw(
		`SELECT id, account_id, status, created_at
		 FROM applications
		 WHERE account_id = ? AND status = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		accountID,
		domain.ApplicationStatusApproved,
	).Scan(&application).Error
	if err != nil {
		return nil, err
	}
	if application.ID == 0 {
		return nil, nil
	}
	return &application, nil
}

func (r *repo) CandidateShard(ctx context.Context, db *gorm.DB, shard int) ([]domain.RegularCustomerAccount, error) {
	var rows []domain.RegularCustomerAccount
	err := db.WithContext(ctx).Raw(
		`SELECT account_id, customer_id, last_graduation_date
		 FROM regular_customer_accounts
		 WHERE account_id % 10 = ?
		 ORDER BY account_id`,
		shard,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
