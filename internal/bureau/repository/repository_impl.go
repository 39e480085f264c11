package repository

import (
	"context"

	"github.com/arthafin/limitengine/internal/bureau/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) LatestInquiry(ctx context.Context, db *gorm.DB, applicationID int64) (*domain.FDCInquiry, error) {
	return r.findInquiry(ctx, db, applicationID, "DESC")
}

func (r *repo) InitialInquiry(ctx context.Context, db *gorm.DB, applicationID int64) (*domain.FDCInquiry, error) {
	return r.findInquiry(ctx, db, applicationID, "ASC")
}

func (r *repo) findInquiry(ctx context.Context, db *gorm.DB, applicationID int64, order string) (*domain.FDCInquiry, error) {
	var inquiry domain.FDCInquiry
	err := db.WithContext(ctx).Raw(
		`SELECT id, application_id, inquiry_date, created_at
		 FROM fdc_inquiries
		 WHERE application_id = ?
		 ORDER BY inquiry_date `+order+`, id `+order+`
		 LIMIT 1`,
		applicationID,
	).Scan(&inquiry).Error
	if err != nil {
		return nil, err
	}
	if inquiry.ID == 0 {
		return nil, nil
	}
	return &inquiry, nil
}

func (r *repo) Loans(ctx context.Context, db *gorm.DB, inquiryID int64) ([]domain.FDCInquiryLoan, error) {
	var loans []domain.FDCInquiryLoan
	err := db.WithContext(ctx).Raw(
		`SELECT id, inquiry_id, is_own_platform, latest_dpd, status, outstanding_idr
		 FROM fdc_inquiry_loans WHERE inquiry_id = ?`,
		inquiryID,
	).Scan(&loans).Error
	if err != nil {
		return nil, err
	}
	return loans, nil
}
