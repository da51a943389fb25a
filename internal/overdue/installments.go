package overdue

import (
	"sort"
	"time"

	"golang-overdue-service/internal/models"

	"github.com/shopspring/decimal"
)

// InstallmentRecord is the debt position of one scheduled installment: how
// much was due by its date, how much had actually been paid by then, and
// whether the difference left the loan overdue.
type InstallmentRecord struct {
	OrderID   int64           `json:"order_id"`
	PlanAt    time.Time       `json:"plan_at"`
	PlanTotal decimal.Decimal `json:"plan_sum_total"`
	PaidTotal decimal.Decimal `json:"paid_cum"`
	Debt      decimal.Decimal `json:"debt"`
	Overdue   bool            `json:"is_overdue"`
	Month     time.Time       `json:"month"`
}

// MonthlyInstallmentSummary aggregates installment records over the calendar
// month their scheduled date falls in.
type MonthlyInstallmentSummary struct {
	Month               time.Time           `json:"month"`
	Installments        int                 `json:"instalments"`
	OverdueInstallments int                 `json:"overdue_instalments"`
	TotalDebt           decimal.Decimal     `json:"total_debt"`
	AvgDebtOverdue      decimal.NullDecimal `json:"avg_debt_overdue"`
	OverdueRate         float64             `json:"overdue_rate"`
}

// BuildInstallmentRecords produces one record per normalized plan entry. For
// each loan, the loan's accumulated payments are matched backward onto the
// loan's own plan dates; debt is the scheduled cumulative amount minus the
// matched cumulative paid, and the installment is overdue iff debt > 0.
// Loans with no plan entries produce no records. Records are ordered by loan
// id, then scheduled date.
func BuildInstallmentRecords(plan map[int64][]*models.PlanEntry, payments map[int64][]*CumulativePayment) []*InstallmentRecord {
	var records []*InstallmentRecord

	for _, orderID := range sortedLoanIDs(plan) {
		loanPlan := plan[orderID]

		queries := make([]time.Time, len(loanPlan))
		for i, entry := range loanPlan {
			queries[i] = entry.PlanAt
		}

		paid := matchAsOf(queries, paidObservations(payments[orderID]))

		for i, entry := range loanPlan {
			debt := entry.CumulativeDue.Sub(paid[i])
			records = append(records, &InstallmentRecord{
				OrderID:   orderID,
				PlanAt:    entry.PlanAt,
				PlanTotal: entry.CumulativeDue,
				PaidTotal: paid[i],
				Debt:      debt,
				Overdue:   debt.IsPositive(),
				Month:     monthStart(entry.PlanAt),
			})
		}
	}

	return records
}

// SummarizeInstallments rolls installment records into one summary row per
// month bucket, restricted to months at or before the calendar month of the
// cutoff date. Total debt sums only positive debts; the average is taken over
// the overdue subset alone and is null when the bucket has no overdue
// installment. Rows are ordered by month.
func SummarizeInstallments(records []*InstallmentRecord, cutoff time.Time) []*MonthlyInstallmentSummary {
	lastMonth := monthStart(cutoff)
	buckets := make(map[time.Time]*MonthlyInstallmentSummary)

	for _, record := range records {
		if record.Month.After(lastMonth) {
			continue
		}

		summary, ok := buckets[record.Month]
		if !ok {
			summary = &MonthlyInstallmentSummary{
				Month:     record.Month,
				TotalDebt: decimal.Zero,
			}
			buckets[record.Month] = summary
		}

		summary.Installments++
		if record.Overdue {
			summary.OverdueInstallments++
			summary.TotalDebt = summary.TotalDebt.Add(record.Debt)
		}
	}

	summaries := make([]*MonthlyInstallmentSummary, 0, len(buckets))
	for _, summary := range buckets {
		if summary.OverdueInstallments > 0 {
			summary.AvgDebtOverdue = decimal.NewNullDecimal(
				summary.TotalDebt.Div(decimal.NewFromInt(int64(summary.OverdueInstallments))))
		}
		summary.OverdueRate = float64(summary.OverdueInstallments) / float64(summary.Installments)
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Month.Before(summaries[j].Month)
	})

	return summaries
}
