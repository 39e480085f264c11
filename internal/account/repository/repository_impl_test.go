package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/arthafin/limitengine/internal/account/domain"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupRepo(t *testing.T) (domain.Repository, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Account{},
		&domain.CreditLimit{},
		&domain.AccountProperty{},
		&domain.Application{},
		&domain.RegularCustomerAccount{},
	))
	return Provide(), db
}

func TestCandidateShard(t *testing.T) {
	repo, db := setupRepo(t)
	ctx := context.Background()

	for _, id := range []int64{3, 13, 23, 4, 15} {
		require.NoError(t, db.Create(&domain.RegularCustomerAccount{
			AccountID:  id,
			CustomerID: id * 10,
		}).Error)
	}

	rows, err := repo.CandidateShard(ctx, db, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, int64(3), rows[0].AccountID)
	assert.Equal(t, int64(13), rows[1].AccountID)
	assert.Equal(t, int64(23), rows[2].AccountID)

	rows, err = repo.CandidateShard(ctx, db, 7)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCreditLimitsMapsByAccount(t *testing.T) {
	repo, db := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&domain.CreditLimit{
		ID: 1, AccountID: 10, SetLimit: 500_000, MaxLimit: 500_000, AvailableLimit: 500_000,
	}).Error)
	require.NoError(t, db.Create(&domain.CreditLimit{
		ID: 2, AccountID: 20, SetLimit: 1_000_000, MaxLimit: 1_000_000, AvailableLimit: 900_000, UsedLimit: 100_000,
	}).Error)

	limits, err := repo.CreditLimits(ctx, db, []int64{10, 20, 30})
	require.NoError(t, err)
	require.Len(t, limits, 2)
	assert.Equal(t, int64(500_000), limits[10].SetLimit)
	assert.Equal(t, int64(100_000), limits[20].UsedLimit)

	limits, err = repo.CreditLimits(ctx, db, nil)
	require.NoError(t, err)
	assert.Empty(t, limits)
}

func TestFindByID(t *testing.T) {
	repo, db := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&domain.Account{
		ID: 1, CustomerID: 10, Status: domain.AccountStatusActive,
	}).Error)

	account, err := repo.FindByID(ctx, db, 1)
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, int64(10), account.CustomerID)

	account, err = repo.FindByID(ctx, db, 2)
	require.NoError(t, err)
	assert.Nil(t, account)
}

func TestLatestApprovedApplication(t *testing.T) {
	repo, db := setupRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, db.Create(&domain.Application{
		ID: 1, AccountID: 1, Status: domain.ApplicationStatusApproved, CreatedAt: now.AddDate(-1, 0, 0),
	}).Error)
	require.NoError(t, db.Create(&domain.Application{
		ID: 2, AccountID: 1, Status: domain.ApplicationStatusApproved, CreatedAt: now,
	}).Error)
	require.NoError(t, db.Create(&domain.Application{
		ID: 3, AccountID: 1, Status: "rejected", CreatedAt: now.AddDate(0, 1, 0),
	}).Error)

	application, err := repo.LatestApprovedApplication(ctx, db, 1)
	require.NoError(t, err)
	require.NotNil(t, application)
	assert.Equal(t, int64(2), application.ID)

	application, err = repo.LatestApprovedApplication(ctx, db, 9)
	require.NoError(t, err)
	assert.Nil(t, application)
}
