package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/arthafin/limitengine/internal/bureau/domain"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupRepo(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.FDCInquiry{}, &domain.FDCInquiryLoan{}))
	return db
}

func TestLoansScansAllColumns(t *testing.T) {
	db := setupRepo(t)
	repo := Provide()

	// The migrated column name must match the raw SELECT, the IDR field in
	// particular.
	require.NoError(t, db.Create(&domain.FDCInquiryLoan{
		ID:             1,
		InquiryID:      10,
		LatestDPD:      3,
		Status:         domain.LoanStatusOutstanding,
		OutstandingIDR: 750_000,
	}).Error)

	loans, err := repo.Loans(context.Background(), db, 10)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, 3, loans[0].LatestDPD)
	assert.Equal(t, int64(750_000), loans[0].OutstandingIDR)
}

func TestInquiryOrdering(t *testing.T) {
	db := setupRepo(t)
	repo := Provide()

	now := time.Now().UTC()
	require.NoError(t, db.Create(&domain.FDCInquiry{
		ID: 1, ApplicationID: 100, InquiryDate: now.AddDate(0, -6, 0),
	}).Error)
	require.NoError(t, db.Create(&domain.FDCInquiry{
		ID: 2, ApplicationID: 100, InquiryDate: now,
	}).Error)

	initial, err := repo.InitialInquiry(context.Background(), db, 100)
	require.NoError(t, err)
	require.NotNil(t, initial)
	assert.Equal(t, int64(1), initial.ID)

	latest, err := repo.LatestInquiry(context.Background(), db, 100)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, int64(2), latest.ID)

	missing, err := repo.LatestInquiry(context.Background(), db, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
