package overdue

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang-overdue-service/internal/models"
	"golang-overdue-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// Snapshot is the debt position of one loan at one month-end date, tagged
// with whether the loan was active on that date.
type Snapshot struct {
	OrderID   int64           `json:"order_id"`
	MonthEnd  time.Time       `json:"month_end"`
	PlanTotal decimal.Decimal `json:"plan_sum_total"`
	PaidTotal decimal.Decimal `json:"paid_cum"`
	Debt      decimal.Decimal `json:"debt"`
	Overdue   bool            `json:"is_overdue"`
	Active    bool            `json:"active"`
}

// MonthlyClientSummary aggregates snapshots of active loans per month-end.
type MonthlyClientSummary struct {
	MonthEnd             time.Time           `json:"month_end"`
	ActiveClients        int                 `json:"active_clients"`
	OverdueActive        int                 `json:"overdue_active"`
	TotalDebtActive      decimal.Decimal     `json:"total_debt_active"`
	AvgDebtOverdueActive decimal.NullDecimal `json:"avg_debt_overdue_active"`
	OverdueRateActive    float64             `json:"overdue_rate_active"`
}

// BuildMonthGrid returns the shared calendar of month-end dates, one per
// month from the month of the earliest plan date through the month of the
// cutoff date, inclusive. The last grid date is the full month-end of the
// cutoff month even when the cutoff falls mid-month, matching the published
// monthly series. An empty plan yields an empty grid.
func BuildMonthGrid(plan []*models.PlanEntry, cutoff time.Time) []time.Time {
	if len(plan) == 0 {
		return nil
	}

	earliest := plan[0].PlanAt
	for _, entry := range plan[1:] {
		if entry.PlanAt.Before(earliest) {
			earliest = entry.PlanAt
		}
	}

	var grid []time.Time
	last := monthStart(cutoff)
	for month := monthStart(earliest); !month.After(last); month = month.AddDate(0, 1, 0) {
		grid = append(grid, monthEnd(month))
	}

	return grid
}

// SnapshotConfig controls the per-loan fan-out of BuildSnapshots.
type SnapshotConfig struct {
	// Workers is the number of goroutines processing loans. Loans are
	// independent; each worker owns a disjoint subset and writes to a
	// private buffer merged before the rollup. 1 means fully sequential.
	Workers int

	// ProgressInterval throttles progress log entries. Zero uses the
	// tracker default.
	ProgressInterval time.Duration

	Logger logger.Logger
}

// BuildSnapshots computes the full Cartesian set of (loan x grid date)
// snapshots. The loan universe is the union of loans appearing in the orders
// table and loans appearing in the plan: lifecycle metadata determines the
// active flag, so a loan without an orders row is never active, and a loan
// without plan entries matches zero for both series (debt 0, never overdue).
func BuildSnapshots(ctx context.Context, orders []*models.Order, plan map[int64][]*models.PlanEntry,
	payments map[int64][]*CumulativePayment, grid []time.Time, config *SnapshotConfig) ([]*Snapshot, error) {

	if len(grid) == 0 {
		return nil, nil
	}
	if config == nil {
		config = &SnapshotConfig{}
	}
	workers := config.Workers
	if workers < 1 {
		workers = 1
	}
	log := config.Logger
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	// First orders row wins for lifecycle lookup; duplicates are reported
	// by the quality check, not resolved here.
	lifecycle := make(map[int64]*models.Order, len(orders))
	for _, order := range orders {
		if _, ok := lifecycle[order.OrderID]; !ok {
			lifecycle[order.OrderID] = order
		}
	}

	universe := make(map[int64]bool, len(lifecycle)+len(plan))
	for id := range lifecycle {
		universe[id] = true
	}
	for id := range plan {
		universe[id] = true
	}
	ids := make([]int64, 0, len(universe))
	for id := range universe {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	progress := logger.NewProgressTracker(logger.ProgressConfig{
		Operation:   "month_end_snapshots",
		Total:       int64(len(ids)),
		LogInterval: config.ProgressInterval,
		Logger:      log,
	})

	snapshotLoan := func(orderID int64) []*Snapshot {
		planMatched := matchAsOf(grid, planObservations(plan[orderID]))
		paidMatched := matchAsOf(grid, paidObservations(payments[orderID]))
		order := lifecycle[orderID]

		loanSnapshots := make([]*Snapshot, len(grid))
		for i, date := range grid {
			debt := planMatched[i].Sub(paidMatched[i])
			loanSnapshots[i] = &Snapshot{
				OrderID:   orderID,
				MonthEnd:  date,
				PlanTotal: planMatched[i],
				PaidTotal: paidMatched[i],
				Debt:      debt,
				Overdue:   debt.IsPositive(),
				Active:    order != nil && order.ActiveOn(date),
			}
		}
		return loanSnapshots
	}

	snapshots := make([]*Snapshot, 0, len(ids)*len(grid))

	if workers == 1 {
		for _, orderID := range ids {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			snapshots = append(snapshots, snapshotLoan(orderID)...)
			progress.Increment(1)
		}
	} else {
		// Each worker owns a contiguous chunk of loan ids and a private
		// buffer; buffers merge in chunk order at the barrier, so the
		// result is identical to the sequential run.
		buffers := make([][]*Snapshot, workers)
		chunk := (len(ids) + workers - 1) / workers

		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			lo := w * chunk
			if lo >= len(ids) {
				break
			}
			hi := lo + chunk
			if hi > len(ids) {
				hi = len(ids)
			}

			wg.Add(1)
			go func(w, lo, hi int) {
				defer wg.Done()
				buffer := make([]*Snapshot, 0, (hi-lo)*len(grid))
				for _, orderID := range ids[lo:hi] {
					if ctx.Err() != nil {
						return
					}
					buffer = append(buffer, snapshotLoan(orderID)...)
					progress.Increment(1)
				}
				buffers[w] = buffer
			}(w, lo, hi)
		}
		wg.Wait()

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, buffer := range buffers {
			snapshots = append(snapshots, buffer...)
		}
	}

	progress.Done()
	return snapshots, nil
}

// SummarizeSnapshots rolls snapshots into one summary row per month-end,
// restricted to active loans. Each loan contributes exactly one snapshot per
// grid date, so the active row count is the distinct active loan count. The
// average positive debt is taken over the overdue active subset alone and is
// null when no active loan is overdue that month. Rows are ordered by
// month-end; a month-end with no active loans produces no row.
func SummarizeSnapshots(snapshots []*Snapshot) []*MonthlyClientSummary {
	buckets := make(map[time.Time]*MonthlyClientSummary)

	for _, snapshot := range snapshots {
		if !snapshot.Active {
			continue
		}

		summary, ok := buckets[snapshot.MonthEnd]
		if !ok {
			summary = &MonthlyClientSummary{
				MonthEnd:        snapshot.MonthEnd,
				TotalDebtActive: decimal.Zero,
			}
			buckets[snapshot.MonthEnd] = summary
		}

		summary.ActiveClients++
		if snapshot.Overdue {
			summary.OverdueActive++
			summary.TotalDebtActive = summary.TotalDebtActive.Add(snapshot.Debt)
		}
	}

	summaries := make([]*MonthlyClientSummary, 0, len(buckets))
	for _, summary := range buckets {
		if summary.OverdueActive > 0 {
			summary.AvgDebtOverdueActive = decimal.NewNullDecimal(
				summary.TotalDebtActive.Div(decimal.NewFromInt(int64(summary.OverdueActive))))
		}
		summary.OverdueRateActive = float64(summary.OverdueActive) / float64(summary.ActiveClients)
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].MonthEnd.Before(summaries[j].MonthEnd)
	})

	return summaries
}
