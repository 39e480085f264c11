package repository

import (
	"context"
	"time"

	"github.com/arthafin/limitengine/internal/eligibility/domain"
	"gorm.io/gorm"

	accountdomain "github.com/arthafin/limitengine/internal/account/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

type countRow struct {
	AccountID    int64
	GraceCount   int
	LateCount    int
	NotPaidCount int
}

type amountRow struct {
	AccountID  int64
	PaidAmount int64
}

type loanRow struct {
	AccountID    int64
	PaidOffLoans int
}

// AggregateWindow computes the per-account payment aggregates. For a first
// graduation the window is the account's whole history up to checkingDate;
// otherwise it starts at the account's own last_graduation_date, which is
// why the window condition joins account_properties per row instead of
// applying one global start.
func (r *repo) AggregateWindow(ctx context.Context, db *gorm.DB, accountIDs []int64, checkingDate time.Time, firstGraduate bool) (map[int64]domain.PaymentAggregate, error) {
	aggregates := make(map[int64]domain.PaymentAggregate, len(accountIDs))
	if len(accountIDs) == 0 {
		return aggregates, nil
	}

	notPaidCutoff := checkingDate.AddDate(0, 0, -domain.NotPaidGraceDays)

	var counts []countRow
	countQuery := `SELECT p.account_id AS account_id,
			SUM(CASE WHEN p.status = ? THEN 1 ELSE 0 END) AS grace_count,
			SUM(CASE WHEN p.status = ? THEN 1 ELSE 0 END) AS late_count,
			SUM(CASE WHEN p.status = ? AND p.due_date < ? THEN 1 ELSE 0 END) AS not_paid_count
		 FROM payments p`
	countArgs := []any{
		accountdomain.PaymentStatusPaidWithinGrace,
		accountdomain.PaymentStatusPaidLate,
		accountdomain.PaymentStatusOverdue,
		notPaidCutoff,
	}
	if !firstGraduate {
		countQuery += ` JOIN account_properties ap ON ap.account_id = p.account_id`
	}
	countQuery += ` WHERE p.account_id IN ? AND p.due_date <= ?`
	countArgs = append(countArgs, accountIDs, checkingDate)
	if !firstGraduate {
		countQuery += ` AND ap.last_graduation_date IS NOT NULL AND p.due_date >= ap.last_graduation_date`
	}
	countQuery += ` GROUP BY p.account_id`
	if err := db.WithContext(ctx).Raw(countQuery, countArgs...).Scan(&counts).Error; err != nil {
		return nil, err
	}
	for _, row := range counts {
		agg := aggregates[row.AccountID]
		agg.AccountID = row.AccountID
		agg.GraceCount = row.GraceCount
		agg.LateCount = row.LateCount
		agg.NotPaidCount = row.NotPaidCount
		aggregates[row.AccountID] = agg
	}

	var amounts []amountRow
	amountQuery := `SELECT p.account_id AS account_id, COALESCE(SUM(p.paid_amount), 0) AS paid_amount
		 FROM payments p`
	amountArgs := []any{}
	if !firstGraduate {
		amountQuery += ` JOIN account_properties ap ON ap.account_id = p.account_id`
	}
	amountQuery += ` WHERE p.account_id IN ? AND p.paid_date IS NOT NULL AND p.paid_date <= ?`
	amountArgs = append(amountArgs, accountIDs, checkingDate)
	if !firstGraduate {
		amountQuery += ` AND ap.last_graduation_date IS NOT NULL AND p.paid_date >= ap.last_graduation_date`
	}
	amountQuery += ` GROUP BY p.account_id`
	if err := db.WithContext(ctx).Raw(amountQuery, amountArgs...).Scan(&amounts).Error; err != nil {
		return nil, err
	}
	for _, row := range amounts {
		agg := aggregates[row.AccountID]
		agg.AccountID = row.AccountID
		agg.PaidAmount = row.PaidAmount
		aggregates[row.AccountID] = agg
	}

	var loans []loanRow
	loanQuery := `SELECT l.account_id AS account_id, COUNT(1) AS paid_off_loans
		 FROM loans l`
	loanArgs := []any{}
	if !firstGraduate {
		loanQuery += ` JOIN account_properties ap ON ap.account_id = l.account_id`
	}
	loanQuery += ` WHERE l.account_id IN ? AND l.status = ? AND l.paid_off_date IS NOT NULL AND l.paid_off_date <= ?`
	loanArgs = append(loanArgs, accountIDs, accountdomain.LoanStatusPaidOff, checkingDate)
	if !firstGraduate {
		loanQuery += ` AND ap.last_graduation_date IS NOT NULL AND l.paid_off_date >= ap.last_graduation_date`
	}
	loanQuery += ` GROUP BY l.account_id`
	if err := db.WithContext(ctx).Raw(loanQuery, loanArgs...).Scan(&loans).Error; err != nil {
		return nil, err
	}
	for _, row := range loans {
		agg := aggregates[row.AccountID]
		agg.AccountID = row.AccountID
		agg.PaidOffLoans = row.PaidOffLoans
		aggregates[row.AccountID] = agg
	}

	return aggregates, nil
}

func (r *repo) MonthlyScores(ctx context.Context, db *gorm.DB, accountIDs []int64, month time.Time) (map[int64]domain.MonthlyScore, error) {
	scores := make(map[int64]domain.MonthlyScore, len(accountIDs))
	if len(accountIDs) == 0 {
		return scores, nil
	}
	var rows []domain.MonthlyScore
	err := db.WithContext(ctx).Raw(
		`SELECT account_id, score, raw_score
		 FROM account_monthly_scores
		 WHERE account_id IN ? AND score_month = ?`,
		accountIDs,
		domain.MonthStart(month),
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		scores[row.AccountID] = row
	}
	return scores, nil
}
