package domain

import (
	"context"
	"math"
	"time"

	featureflagdomain "github.com/arthafin/limitengine/internal/featureflag/domain"
	"gorm.io/gorm"
)

// NotPaidGraceDays is the buffer applied to the overdue-payment filter: a
// payment due less than this many days before the checking date is not
// counted against the account yet.
const NotPaidGraceDays = 4

// AccountMonthlyScore is one row of the monthly risk-score table produced
// by the offline scoring collaborator. Score is the bucketable monthly
// score, RawScore the unbucketed model output for the same month.
type AccountMonthlyScore struct {
	ID         int64     `gorm:"primaryKey"`
	AccountID  int64     `gorm:"not null;index:idx_monthly_scores_account_month,priority:1"`
	ScoreMonth time.Time `gorm:"not null;index:idx_monthly_scores_account_month,priority:2"`
	Score      float64   `gorm:"not null"`
	RawScore   float64   `gorm:"not null"`
}

func (AccountMonthlyScore) TableName() string { return "account_monthly_scores" }

// PaymentAggregate holds the windowed aggregates for one account. Missing
// data yields the zero value for every field.
type PaymentAggregate struct {
	AccountID    int64
	GraceCount   int
	LateCount    int
	NotPaidCount int
	PaidAmount   int64
	PaidOffLoans int
}

// MonthlyScore is the per-account view used by the score-trend filter.
type MonthlyScore struct {
	AccountID int64
	Score     float64
	RawScore  float64
}

type Repository interface {
	AggregateWindow(ctx context.Context, db *gorm.DB, accountIDs []int64, checkingDate time.Time, firstGraduate bool) (map[int64]PaymentAggregate, error)
	MonthlyScores(ctx context.Context, db *gorm.DB, accountIDs []int64, month time.Time) (map[int64]MonthlyScore, error)
}

// Service filters candidate accounts. Both filters are pure over the data
// they read: ineligible accounts are dropped from the result, never
// reported as errors.
type Service interface {
	FilterEligible(ctx context.Context, accountIDs []int64, checkingDate time.Time, rules featureflagdomain.GraduationRuleSet, firstGraduate bool, setLimits map[int64]int64) ([]int64, error)
	FilterScoreTrend(ctx context.Context, accountIDs []int64, checkingDate time.Time) ([]int64, error)
}

// BucketScore floors a risk score to the nearest 0.05 increment.
func BucketScore(score float64) float64 {
	return math.Floor(score*20) / 20
}

// MonthStart truncates a date to the first day of its month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
