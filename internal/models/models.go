// Package models defines the records flowing through the overdue analyzer:
// loan orders, actual payments, and the cumulative repayment plan, together
// with the parsing helpers used to coerce CSV fields into typed values.
package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateOnly is the canonical date layout used in input and output tables.
const DateOnly = "2006-01-02"

// Order represents a loan order's lifecycle metadata.
// A zero ClosedAt means the loan is still open.
type Order struct {
	OrderID   int64               `json:"order_id" csv:"order_id"`
	CreatedAt time.Time           `json:"created_at" csv:"created_at"`
	PutAt     time.Time           `json:"put_at" csv:"put_at"`
	ClosedAt  time.Time           `json:"closed_at" csv:"closed_at"`
	IssuedSum decimal.NullDecimal `json:"issued_sum" csv:"issued_sum"`
}

// NewOrder creates a new Order instance
func NewOrder(orderID int64, putAt time.Time) *Order {
	return &Order{
		OrderID: orderID,
		PutAt:   putAt,
	}
}

// Validate performs basic validation on the Order
func (o *Order) Validate() error {
	if o.OrderID <= 0 {
		return fmt.Errorf("order ID must be positive, got %d", o.OrderID)
	}
	if o.PutAt.IsZero() {
		return fmt.Errorf("order activation date cannot be zero")
	}
	if !o.ClosedAt.IsZero() && o.ClosedAt.Before(o.PutAt) {
		return fmt.Errorf("order closure date %s precedes activation date %s",
			o.ClosedAt.Format(DateOnly), o.PutAt.Format(DateOnly))
	}
	return nil
}

// IsOpen reports whether the loan has no recorded closure date.
func (o *Order) IsOpen() bool {
	return o.ClosedAt.IsZero()
}

// ActiveOn reports whether the loan is active on the given date:
// activated at or before it, and not yet closed (closure strictly after it).
func (o *Order) ActiveOn(date time.Time) bool {
	if o.PutAt.After(date) {
		return false
	}
	return o.IsOpen() || o.ClosedAt.After(date)
}

// String returns a string representation of the Order
func (o *Order) String() string {
	closed := "open"
	if !o.IsOpen() {
		closed = o.ClosedAt.Format(DateOnly)
	}
	return fmt.Sprintf("Order{ID: %d, PutAt: %s, ClosedAt: %s}",
		o.OrderID, o.PutAt.Format(DateOnly), closed)
}

// Payment represents a single actual payment against a loan.
type Payment struct {
	OrderID int64           `json:"order_id" csv:"order_id"`
	PaidAt  time.Time       `json:"paid_at" csv:"paid_at"`
	Amount  decimal.Decimal `json:"paid_sum" csv:"paid_sum"`
}

// NewPayment creates a new Payment instance
func NewPayment(orderID int64, paidAt time.Time, amount decimal.Decimal) *Payment {
	return &Payment{
		OrderID: orderID,
		PaidAt:  paidAt,
		Amount:  amount,
	}
}

// Validate performs basic validation on the Payment
func (p *Payment) Validate() error {
	if p.OrderID <= 0 {
		return fmt.Errorf("payment order ID must be positive, got %d", p.OrderID)
	}
	if p.PaidAt.IsZero() {
		return fmt.Errorf("payment date cannot be zero")
	}
	if p.Amount.IsNegative() {
		return fmt.Errorf("payment amount cannot be negative: %s", p.Amount.String())
	}
	return nil
}

// Key returns the identity triple used for exact-duplicate removal.
func (p *Payment) Key() string {
	return fmt.Sprintf("%d|%d|%s", p.OrderID, p.PaidAt.Unix(), p.Amount.String())
}

// String returns a string representation of the Payment
func (p *Payment) String() string {
	return fmt.Sprintf("Payment{Order: %d, PaidAt: %s, Amount: %s}",
		p.OrderID, p.PaidAt.Format(DateOnly), p.Amount.String())
}

// PlanEntry represents one row of the cumulative repayment schedule:
// the total amount due by PlanAt for the loan.
type PlanEntry struct {
	OrderID       int64           `json:"order_id" csv:"order_id"`
	PlanAt        time.Time       `json:"plan_at" csv:"plan_at"`
	CumulativeDue decimal.Decimal `json:"plan_sum_total" csv:"plan_sum_total"`
}

// NewPlanEntry creates a new PlanEntry instance
func NewPlanEntry(orderID int64, planAt time.Time, cumulativeDue decimal.Decimal) *PlanEntry {
	return &PlanEntry{
		OrderID:       orderID,
		PlanAt:        planAt,
		CumulativeDue: cumulativeDue,
	}
}

// Validate performs basic validation on the PlanEntry
func (pe *PlanEntry) Validate() error {
	if pe.OrderID <= 0 {
		return fmt.Errorf("plan entry order ID must be positive, got %d", pe.OrderID)
	}
	if pe.PlanAt.IsZero() {
		return fmt.Errorf("plan entry date cannot be zero")
	}
	return nil
}

// String returns a string representation of the PlanEntry
func (pe *PlanEntry) String() string {
	return fmt.Sprintf("PlanEntry{Order: %d, PlanAt: %s, Due: %s}",
		pe.OrderID, pe.PlanAt.Format(DateOnly), pe.CumulativeDue.String())
}

// Dataset bundles the three fully loaded input tables handed to the engine.
type Dataset struct {
	Orders   []*Order
	Payments []*Payment
	Plan     []*PlanEntry
}

// Parsing helpers shared by the CSV loaders

// ParseOrderID parses a loan identifier, tolerating surrounding whitespace
// and a spreadsheet-style trailing ".0".
func ParseOrderID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("order ID cannot be empty")
	}
	s = strings.TrimSuffix(s, ".0")

	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid order ID '%s': %w", s, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("order ID must be positive, got %d", id)
	}
	return id, nil
}

// ParseDecimal parses a decimal amount from a CSV field, stripping common
// currency symbols and thousand separators.
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}
	return d, nil
}

// ParseDate attempts to parse a date from a CSV field using the formats
// commonly found in loan data exports.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	formats := []string{
		DateOnly,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"02.01.2006",
		"01/02/2006",
		"2006/01/02",
	}

	var lastErr error
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date '%s': %w", s, lastErr)
}
