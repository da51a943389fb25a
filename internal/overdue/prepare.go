package overdue

import (
	"fmt"
	"sort"
	"time"

	"golang-overdue-service/internal/models"
	apperrors "golang-overdue-service/pkg/errors"

	"github.com/shopspring/decimal"
)

// CumulativePayment is a payment row carrying the running total paid for its
// loan up to and including its date.
type CumulativePayment struct {
	OrderID        int64
	PaidAt         time.Time
	Amount         decimal.Decimal
	CumulativePaid decimal.Decimal
}

// NormalizePlan groups plan entries by loan, sorts each loan's entries by
// scheduled date, and forces the cumulative amount due to be non-decreasing
// by replacing each value with the running maximum. Upstream data errors
// occasionally produce schedules that decrease over time, which contradicts
// "cumulative amount due" semantics; they are repaired, not rejected.
//
// No entries are dropped or added. Input records are not mutated.
func NormalizePlan(entries []*models.PlanEntry) (map[int64][]*models.PlanEntry, error) {
	grouped := make(map[int64][]*models.PlanEntry)

	for _, entry := range entries {
		if entry.OrderID <= 0 {
			return nil, apperrors.ComputeError(apperrors.CodeContractViolation, "plan normalization",
				fmt.Errorf("plan entry without order ID reached the engine: %s", entry))
		}
		clone := *entry
		grouped[entry.OrderID] = append(grouped[entry.OrderID], &clone)
	}

	for _, loanPlan := range grouped {
		sort.SliceStable(loanPlan, func(i, j int) bool {
			return loanPlan[i].PlanAt.Before(loanPlan[j].PlanAt)
		})

		runningMax := decimal.Zero
		for i, entry := range loanPlan {
			if i == 0 || entry.CumulativeDue.GreaterThan(runningMax) {
				runningMax = entry.CumulativeDue
			}
			entry.CumulativeDue = runningMax
		}
	}

	return grouped, nil
}

// AccumulatePayments groups payments by loan, sorts each loan's payments by
// date (stable, so same-day payments keep their original order), and computes
// the running sum of amounts. One output row per input payment.
func AccumulatePayments(payments []*models.Payment) (map[int64][]*CumulativePayment, error) {
	grouped := make(map[int64][]*CumulativePayment)

	for _, payment := range payments {
		if payment.OrderID <= 0 {
			return nil, apperrors.ComputeError(apperrors.CodeContractViolation, "payment accumulation",
				fmt.Errorf("payment without order ID reached the engine: %s", payment))
		}
		grouped[payment.OrderID] = append(grouped[payment.OrderID], &CumulativePayment{
			OrderID: payment.OrderID,
			PaidAt:  payment.PaidAt,
			Amount:  payment.Amount,
		})
	}

	for _, loanPayments := range grouped {
		sort.SliceStable(loanPayments, func(i, j int) bool {
			return loanPayments[i].PaidAt.Before(loanPayments[j].PaidAt)
		})

		running := decimal.Zero
		for _, payment := range loanPayments {
			running = running.Add(payment.Amount)
			payment.CumulativePaid = running
		}
	}

	return grouped, nil
}

// paidObservations converts a loan's accumulated payments into the
// observation series consumed by matchAsOf. A loan with no payments yields an
// empty series, which matches to zero everywhere.
func paidObservations(loanPayments []*CumulativePayment) []observation {
	obs := make([]observation, len(loanPayments))
	for i, payment := range loanPayments {
		obs[i] = observation{at: payment.PaidAt, value: payment.CumulativePaid}
	}
	return obs
}

// planObservations converts a loan's normalized plan into the observation
// series consumed by matchAsOf.
func planObservations(loanPlan []*models.PlanEntry) []observation {
	obs := make([]observation, len(loanPlan))
	for i, entry := range loanPlan {
		obs[i] = observation{at: entry.PlanAt, value: entry.CumulativeDue}
	}
	return obs
}

// sortedLoanIDs returns the keys of a per-loan grouping in ascending order,
// for deterministic iteration.
func sortedLoanIDs[T any](grouped map[int64][]T) []int64 {
	ids := make([]int64, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
