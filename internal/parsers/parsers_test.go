package parsers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func writeTempCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func testDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestParseOrders(t *testing.T) {
	path := writeTempCSV(t, "orders.csv", `order_id,created_at,put_at,closed_at,issued_sum
1,2022-01-10,2022-01-15,,1000
2,2022-01-11,2022-01-12,2022-03-05,500.50
`)

	orders, stats, err := NewOrdersParser(nil).ParseOrders(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
	if stats.RecordsKept != 2 || stats.RowsDropped != 0 {
		t.Errorf("stats: kept=%d dropped=%d", stats.RecordsKept, stats.RowsDropped)
	}

	first := orders[0]
	if first.OrderID != 1 || !first.PutAt.Equal(testDate(2022, 1, 15)) {
		t.Errorf("first order: id=%d put_at=%s", first.OrderID, first.PutAt)
	}
	if !first.IsOpen() {
		t.Error("order without closure date must be open")
	}
	if !first.IssuedSum.Valid || !first.IssuedSum.Decimal.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("first order issued sum: %v", first.IssuedSum)
	}

	second := orders[1]
	if second.IsOpen() || !second.ClosedAt.Equal(testDate(2022, 3, 5)) {
		t.Errorf("second order closure: open=%v closed_at=%s", second.IsOpen(), second.ClosedAt)
	}
}

func TestParseOrdersDropsBadRowsAndCountsDuplicates(t *testing.T) {
	path := writeTempCSV(t, "orders.csv", `order_id,put_at
1,2022-01-15
,2022-01-16
2,not-a-date
1,2022-02-01
`)

	orders, stats, err := NewOrdersParser(nil).ParseOrders(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Rows 2 and 3 dropped; the repeated id 1 is kept but counted.
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
	if stats.RowsDropped != 2 {
		t.Errorf("expected 2 dropped rows, got %d", stats.RowsDropped)
	}
	if stats.Duplicates != 1 {
		t.Errorf("expected 1 duplicate order ID, got %d", stats.Duplicates)
	}
}

func TestParseOrdersNoCutoffTruncation(t *testing.T) {
	// Lifecycle dates past the analysis date are legitimate.
	path := writeTempCSV(t, "orders.csv", `order_id,put_at,closed_at
1,2030-06-01,2031-01-01
`)

	orders, _, err := NewOrdersParser(nil).ParseOrders(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected future-dated order to survive, got %d orders", len(orders))
	}
}

func TestParseOrdersColumnAliases(t *testing.T) {
	path := writeTempCSV(t, "orders.csv", `loan_id,activated,closure
7,2022-01-15,2022-06-01
`)

	orders, _, err := NewOrdersParser(nil).ParseOrders(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 1 || orders[0].OrderID != 7 {
		t.Fatalf("aliased columns not resolved: %+v", orders)
	}
	if !orders[0].ClosedAt.Equal(testDate(2022, 6, 1)) {
		t.Errorf("closure alias not resolved: %s", orders[0].ClosedAt)
	}
}

func TestParseOrdersMissingRequiredColumn(t *testing.T) {
	path := writeTempCSV(t, "orders.csv", `order_id,closed_at
1,2022-06-01
`)

	if _, _, err := NewOrdersParser(nil).ParseOrders(path); err == nil {
		t.Fatal("expected error for missing activation date column")
	}
}

func TestParseOrdersFileNotFound(t *testing.T) {
	if _, _, err := NewOrdersParser(nil).ParseOrders("/nonexistent/orders.csv"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParsePayments(t *testing.T) {
	path := writeTempCSV(t, "payments.csv", `order_id,paid_at,paid_sum
1,2022-01-20,100
1,2022-02-10,50.25
2,2022-01-05,30
`)

	payments, stats, err := NewPaymentsParser(nil).ParsePayments(path, testDate(2022, 12, 8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payments) != 3 || stats.RecordsKept != 3 {
		t.Fatalf("expected 3 payments, got %d", len(payments))
	}
	if !payments[1].Amount.Equal(decimal.NewFromFloat(50.25)) {
		t.Errorf("expected amount 50.25, got %s", payments[1].Amount)
	}
}

func TestParsePaymentsCutoffExclusion(t *testing.T) {
	path := writeTempCSV(t, "payments.csv", `order_id,paid_at,paid_sum
1,2022-12-08,100
1,2022-12-09,200
`)

	// The cutoff day itself is included; strictly later dates are not.
	payments, stats, err := NewPaymentsParser(nil).ParsePayments(path, testDate(2022, 12, 8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payments) != 1 {
		t.Fatalf("expected 1 payment, got %d", len(payments))
	}
	if !payments[0].PaidAt.Equal(testDate(2022, 12, 8)) {
		t.Errorf("wrong payment survived: %s", payments[0].PaidAt)
	}
	if stats.AfterCutoff != 1 {
		t.Errorf("expected 1 row after cutoff, got %d", stats.AfterCutoff)
	}
}

func TestParsePaymentsDeduplication(t *testing.T) {
	path := writeTempCSV(t, "payments.csv", `order_id,paid_at,paid_sum
1,2022-01-20,100
1,2022-01-20,100
1,2022-01-20,99
`)

	payments, stats, err := NewPaymentsParser(nil).ParsePayments(path, testDate(2022, 12, 8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Exact triple duplicates collapse; a different amount on the same day
	// is a distinct payment.
	if len(payments) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(payments))
	}
	if stats.Duplicates != 1 {
		t.Errorf("expected 1 duplicate, got %d", stats.Duplicates)
	}
}

func TestParsePaymentsDropsBadRows(t *testing.T) {
	path := writeTempCSV(t, "payments.csv", `order_id,paid_at,paid_sum
1,2022-01-20,100
abc,2022-01-21,50
2,2022-01-22,oops
3,,10
`)

	payments, stats, err := NewPaymentsParser(nil).ParsePayments(path, testDate(2022, 12, 8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payments) != 1 {
		t.Fatalf("expected 1 payment, got %d", len(payments))
	}
	if stats.RowsDropped != 3 {
		t.Errorf("expected 3 dropped rows, got %d", stats.RowsDropped)
	}
	if stats.ErrorCount != 3 {
		t.Errorf("expected 3 recorded errors, got %d", stats.ErrorCount)
	}
}

func TestParsePlan(t *testing.T) {
	path := writeTempCSV(t, "plan.csv", `order_id,plan_at,plan_sum_total
1,2022-01-31,100
1,2022-02-28,200
2,2022-02-15,60
`)

	entries, stats, err := NewPlanParser(nil).ParsePlan(path, testDate(2022, 12, 8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 || stats.RecordsKept != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[1].OrderID != 1 || !entries[1].CumulativeDue.Equal(decimal.NewFromInt(200)) {
		t.Errorf("second entry: %+v", entries[1])
	}
}

func TestParsePlanCutoffExclusion(t *testing.T) {
	path := writeTempCSV(t, "plan.csv", `order_id,plan_at,plan_sum_total
1,2022-11-30,100
1,2022-12-31,200
`)

	entries, stats, err := NewPlanParser(nil).ParsePlan(path, testDate(2022, 12, 8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if stats.AfterCutoff != 1 {
		t.Errorf("expected 1 row after cutoff, got %d", stats.AfterCutoff)
	}
}

func TestParsePlanKeepsDecreasingAmounts(t *testing.T) {
	// Decreasing cumulative amounts are a data wrinkle repaired downstream,
	// not a load failure.
	path := writeTempCSV(t, "plan.csv", `order_id,plan_at,plan_sum_total
1,2022-01-31,100
1,2022-02-28,80
`)

	entries, _, err := NewPlanParser(nil).ParsePlan(path, testDate(2022, 12, 8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected both entries kept, got %d", len(entries))
	}
	if !entries[1].CumulativeDue.Equal(decimal.NewFromInt(80)) {
		t.Errorf("raw value must be preserved, got %s", entries[1].CumulativeDue)
	}
}

func TestParsePlanFractionalOrderID(t *testing.T) {
	// Spreadsheet exports sometimes serialize integer ids as floats.
	path := writeTempCSV(t, "plan.csv", `order_id,plan_at,plan_sum_total
42.0,2022-01-31,100
`)

	entries, _, err := NewPlanParser(nil).ParsePlan(path, testDate(2022, 12, 8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].OrderID != 42 {
		t.Fatalf("expected order ID 42, got %+v", entries)
	}
}

func TestParseStatsErrorCap(t *testing.T) {
	stats := NewParseStats(2)
	for i := 0; i < 5; i++ {
		stats.AddError(&ParseError{Line: i + 1, Message: "bad row"})
	}

	if stats.ErrorCount != 5 {
		t.Errorf("expected 5 counted errors, got %d", stats.ErrorCount)
	}
	if len(stats.Errors) != 2 {
		t.Errorf("expected 2 kept errors, got %d", len(stats.Errors))
	}
}
