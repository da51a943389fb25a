// Package overdue implements the delinquency computation core: plan
// normalization, payment accumulation, backward as-of matching, per-
// installment and month-end debt records, and their monthly rollups.
//
// All computation is pure and deterministic given the input tables and the
// cutoff date. Inputs are fully materialized before the engine runs; the
// engine performs no I/O of its own.
package overdue

import (
	"time"

	"github.com/shopspring/decimal"
)

// observation is a dated cumulative value for a single loan, used as the
// right side of an as-of match (either cumulative plan or cumulative paid).
type observation struct {
	at    time.Time
	value decimal.Decimal
}

// matchAsOf returns, for each query date, the value of the observation with
// the largest date at or before it. A query with no qualifying observation
// matches zero: an unobserved cumulative quantity is zero to date, never
// "unknown".
//
// Both inputs must be sorted ascending by date. The match is a single forward
// merge, O(len(queries)+len(obs)); with duplicate observation dates the
// latest qualifying one wins.
func matchAsOf(queries []time.Time, obs []observation) []decimal.Decimal {
	matched := make([]decimal.Decimal, len(queries))

	last := -1
	next := 0
	for i, q := range queries {
		for next < len(obs) && !obs[next].at.After(q) {
			last = next
			next++
		}
		if last >= 0 {
			matched[i] = obs[last].value
		} else {
			matched[i] = decimal.Zero
		}
	}

	return matched
}

// monthStart truncates a date to the first day of its calendar month.
func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// monthEnd returns the last day of the calendar month containing t.
func monthEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location())
}
