package quality

import (
	"testing"
	"time"

	"golang-overdue-service/internal/models"

	"github.com/shopspring/decimal"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestCheckCleanDataset(t *testing.T) {
	dataset := &models.Dataset{
		Orders: []*models.Order{
			{OrderID: 1, PutAt: date(2022, 1, 15), ClosedAt: date(2022, 6, 1),
				IssuedSum: decimal.NewNullDecimal(decimal.NewFromInt(1000))},
		},
		Payments: []*models.Payment{
			{OrderID: 1, PaidAt: date(2022, 1, 20), Amount: decimal.NewFromInt(100)},
		},
		Plan: []*models.PlanEntry{
			{OrderID: 1, PlanAt: date(2022, 1, 31), CumulativeDue: decimal.NewFromInt(100)},
		},
	}

	report := Check(dataset)

	if *report != (Report{}) {
		t.Errorf("clean dataset should produce an empty report, got %+v", report)
	}
}

func TestCheckFindsDuplicatesAndGaps(t *testing.T) {
	dataset := &models.Dataset{
		Orders: []*models.Order{
			{OrderID: 1, PutAt: date(2022, 1, 15)},
			{OrderID: 1, PutAt: date(2022, 2, 1)},
			{OrderID: 2, PutAt: date(2022, 1, 10), ClosedAt: date(2022, 3, 5),
				IssuedSum: decimal.NewNullDecimal(decimal.NewFromInt(500))},
		},
		Payments: []*models.Payment{
			{OrderID: 1, PaidAt: date(2022, 1, 20), Amount: decimal.NewFromInt(100)},
			{OrderID: 1, PaidAt: date(2022, 1, 20), Amount: decimal.NewFromInt(100)},
		},
		Plan: []*models.PlanEntry{
			{OrderID: 1, PlanAt: date(2022, 1, 31), CumulativeDue: decimal.NewFromInt(100)},
			{OrderID: 1, PlanAt: date(2022, 1, 31), CumulativeDue: decimal.NewFromInt(120)},
		},
	}

	report := Check(dataset)

	if report.DuplicateOrderIDs != 1 {
		t.Errorf("duplicate order IDs: expected 1, got %d", report.DuplicateOrderIDs)
	}
	if report.DuplicatePayments != 1 {
		t.Errorf("duplicate payments: expected 1, got %d", report.DuplicatePayments)
	}
	// Same loan and date with different amounts still counts: the plan key
	// is (order id, date).
	if report.DuplicatePlanRows != 1 {
		t.Errorf("duplicate plan rows: expected 1, got %d", report.DuplicatePlanRows)
	}
	if report.OrdersWithoutClose != 2 {
		t.Errorf("orders without close: expected 2, got %d", report.OrdersWithoutClose)
	}
	if report.OrdersWithoutSum != 2 {
		t.Errorf("orders without sum: expected 2, got %d", report.OrdersWithoutSum)
	}
}

func TestCheckEmptyDataset(t *testing.T) {
	report := Check(&models.Dataset{})
	if *report != (Report{}) {
		t.Errorf("empty dataset should produce an empty report, got %+v", report)
	}
}
