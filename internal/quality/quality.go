// Package quality produces a quick pre-computation health report of the
// loaded tables: duplicate keys and missing optional fields. The report is
// informational; nothing here rejects data, since the loaders already drop
// rows that cannot participate in the computation.
package quality

import (
	"fmt"

	"golang-overdue-service/internal/models"
	"golang-overdue-service/pkg/logger"
)

// Report summarizes data quality findings over the loaded dataset.
type Report struct {
	DuplicateOrderIDs  int
	DuplicatePayments  int
	DuplicatePlanRows  int
	OrdersWithoutClose int
	OrdersWithoutSum   int
}

// Check inspects the dataset and returns a quality report.
func Check(dataset *models.Dataset) *Report {
	report := &Report{}

	seenOrders := make(map[int64]bool, len(dataset.Orders))
	for _, order := range dataset.Orders {
		if seenOrders[order.OrderID] {
			report.DuplicateOrderIDs++
		}
		seenOrders[order.OrderID] = true

		if order.IsOpen() {
			report.OrdersWithoutClose++
		}
		if !order.IssuedSum.Valid {
			report.OrdersWithoutSum++
		}
	}

	// The payments loader removes exact duplicates; any counted here came
	// from merging multiple inputs after loading.
	seenPayments := make(map[string]bool, len(dataset.Payments))
	for _, payment := range dataset.Payments {
		key := payment.Key()
		if seenPayments[key] {
			report.DuplicatePayments++
		}
		seenPayments[key] = true
	}

	seenPlan := make(map[string]bool, len(dataset.Plan))
	for _, entry := range dataset.Plan {
		key := fmt.Sprintf("%d|%d", entry.OrderID, entry.PlanAt.Unix())
		if seenPlan[key] {
			report.DuplicatePlanRows++
		}
		seenPlan[key] = true
	}

	return report
}

// Log writes the report through the given logger, one entry per table.
func (r *Report) Log(log logger.Logger) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	log = log.WithComponent("quality")

	log.WithFields(logger.Fields{
		"duplicate_order_ids":  r.DuplicateOrderIDs,
		"orders_without_close": r.OrdersWithoutClose,
		"orders_without_sum":   r.OrdersWithoutSum,
	}).Info("Orders quality check")

	log.WithFields(logger.Fields{
		"duplicate_payments": r.DuplicatePayments,
	}).Info("Payments quality check")

	log.WithFields(logger.Fields{
		"duplicate_plan_rows": r.DuplicatePlanRows,
	}).Info("Plan quality check")

	if r.DuplicateOrderIDs > 0 {
		log.Warn("Orders table contains duplicate order IDs; the first occurrence is used for lifecycle dates")
	}
}
