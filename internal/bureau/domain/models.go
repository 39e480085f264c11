package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// MaxNonPlatformDPD is the delinquency tolerance for loans held at other
// lenders. Anything later than this blocks graduation.
const MaxNonPlatformDPD = 5

// Outstanding status values reported by the bureau.
const (
	LoanStatusOutstanding = "outstanding"
	LoanStatusSettled     = "settled"
)

// FDCInquiry is one bureau pull for an application. The initial inquiry is
// the snapshot taken at application time; later pulls show debt taken on
// since approval.
type FDCInquiry struct {
	ID            int64     `gorm:"primaryKey"`
	ApplicationID int64     `gorm:"not null;index"`
	InquiryDate   time.Time `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (FDCInquiry) TableName() string { return "fdc_inquiries" }

// FDCInquiryLoan is one cross-lender loan visible in an inquiry.
type FDCInquiryLoan struct {
	ID             int64  `gorm:"primaryKey"`
	InquiryID      int64  `gorm:"not null;index"`
	IsOwnPlatform  bool   `gorm:"not null;default:false"`
	LatestDPD      int    `gorm:"not null;default:0"`
	Status         string `gorm:"type:text;not null"`
	OutstandingIDR int64  `gorm:"column:outstanding_idr;not null;default:0"`
}

func (FDCInquiryLoan) TableName() string { return "fdc_inquiry_loans" }

type Repository interface {
	LatestInquiry(ctx context.Context, db *gorm.DB, applicationID int64) (*FDCInquiry, error)
	InitialInquiry(ctx context.Context, db *gorm.DB, applicationID int64) (*FDCInquiry, error)
	Loans(ctx context.Context, db *gorm.DB, inquiryID int64) ([]FDCInquiryLoan, error)
}

// Gate decides whether an account may graduate given its bureau record.
// It fails closed: missing data, delinquent external debt, new outstanding
// debt since approval, and internal errors all return false. When the
// bureau check feature is inactive the gate always passes.
type Gate interface {
	Allow(ctx context.Context, accountID int64) bool
}
