package overdue

import (
	"context"
	"testing"

	"golang-overdue-service/internal/models"
	apperrors "golang-overdue-service/pkg/errors"
)

func TestConfigValidate(t *testing.T) {
	valid := &Config{AsOf: day(2022, 12, 8), Workers: 1}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	missing := &Config{Workers: 1}
	if err := missing.Validate(); err == nil {
		t.Error("expected error for missing as-of date")
	}

	badWorkers := &Config{AsOf: day(2022, 12, 8), Workers: 0}
	if err := badWorkers.Validate(); err == nil {
		t.Error("expected error for zero workers")
	}
}

func TestNewEngineRequiresConfig(t *testing.T) {
	if _, err := NewEngine(nil); err == nil {
		t.Fatal("expected error for nil configuration")
	}
	if _, err := NewEngine(DefaultConfig()); err == nil {
		t.Fatal("expected error for default configuration without as-of date")
	}
}

func TestEngineRunEndToEnd(t *testing.T) {
	// One loan paying its first installment on time and missing the second,
	// one loan paying nothing at all.
	dataset := &models.Dataset{
		Orders: []*models.Order{
			{OrderID: 1, PutAt: day(2022, 1, 15)},
			{OrderID: 2, PutAt: day(2022, 3, 1)},
		},
		Payments: []*models.Payment{
			{OrderID: 1, PaidAt: day(2022, 1, 20), Amount: d(100)},
		},
		Plan: []*models.PlanEntry{
			{OrderID: 1, PlanAt: day(2022, 1, 31), CumulativeDue: d(100)},
			{OrderID: 1, PlanAt: day(2022, 2, 28), CumulativeDue: d(200)},
			{OrderID: 2, PlanAt: day(2022, 3, 31), CumulativeDue: d(50)},
		},
	}

	engine, err := NewEngine(&Config{AsOf: day(2022, 4, 10), Workers: 1})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	result, err := engine.Run(context.Background(), dataset)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.Installments) != 3 {
		t.Fatalf("expected 3 installment records, got %d", len(result.Installments))
	}
	if len(result.InstallmentMonths) != 3 {
		t.Fatalf("expected 3 installment months, got %d", len(result.InstallmentMonths))
	}
	// 2 loans x 4 month-ends (January through April)
	if len(result.Snapshots) != 8 {
		t.Fatalf("expected 8 snapshots, got %d", len(result.Snapshots))
	}
	if len(result.ClientMonths) != 4 {
		t.Fatalf("expected 4 client months, got %d", len(result.ClientMonths))
	}

	// Loan 1's second installment stays overdue with debt 100.
	second := result.Installments[1]
	if second.OrderID != 1 || !second.Debt.Equal(d(100)) || !second.Overdue {
		t.Errorf("second installment: order=%d debt=%s overdue=%v", second.OrderID, second.Debt, second.Overdue)
	}

	// Loan 2 never pays: its March installment is fully overdue.
	third := result.Installments[2]
	if third.OrderID != 2 || !third.Debt.Equal(d(50)) || !third.Overdue {
		t.Errorf("third installment: order=%d debt=%s overdue=%v", third.OrderID, third.Debt, third.Overdue)
	}

	march := result.InstallmentMonths[2]
	if march.Installments != 1 || march.OverdueInstallments != 1 {
		t.Errorf("March rollup: %d installments, %d overdue", march.Installments, march.OverdueInstallments)
	}

	// January client rollup: only loan 1 is active, settled.
	january := result.ClientMonths[0]
	if !january.MonthEnd.Equal(day(2022, 1, 31)) {
		t.Fatalf("expected January first, got %s", january.MonthEnd.Format("2006-01-02"))
	}
	if january.ActiveClients != 1 || january.OverdueActive != 0 {
		t.Errorf("January: active=%d overdue=%d", january.ActiveClients, january.OverdueActive)
	}

	// March client rollup: both loans active and overdue, debts 100 + 50.
	marchClients := result.ClientMonths[2]
	if marchClients.ActiveClients != 2 || marchClients.OverdueActive != 2 {
		t.Errorf("March clients: active=%d overdue=%d", marchClients.ActiveClients, marchClients.OverdueActive)
	}
	if !marchClients.TotalDebtActive.Equal(d(150)) {
		t.Errorf("March total debt: expected 150, got %s", marchClients.TotalDebtActive)
	}
	if !marchClients.AvgDebtOverdueActive.Valid || !marchClients.AvgDebtOverdueActive.Decimal.Equal(d(75)) {
		t.Errorf("March average debt: expected 75, got %v", marchClients.AvgDebtOverdueActive)
	}
}

func TestEngineRunParallelMatchesSequential(t *testing.T) {
	dataset := &models.Dataset{
		Orders: []*models.Order{
			{OrderID: 1, PutAt: day(2022, 1, 15)},
			{OrderID: 2, PutAt: day(2022, 1, 10), ClosedAt: day(2022, 3, 5)},
			{OrderID: 3, PutAt: day(2022, 2, 1)},
		},
		Payments: []*models.Payment{
			{OrderID: 1, PaidAt: day(2022, 1, 20), Amount: d(100)},
			{OrderID: 3, PaidAt: day(2022, 2, 15), Amount: d(25)},
		},
		Plan: []*models.PlanEntry{
			{OrderID: 1, PlanAt: day(2022, 1, 31), CumulativeDue: d(100)},
			{OrderID: 1, PlanAt: day(2022, 2, 28), CumulativeDue: d(200)},
			{OrderID: 2, PlanAt: day(2022, 2, 15), CumulativeDue: d(60)},
			{OrderID: 3, PlanAt: day(2022, 2, 28), CumulativeDue: d(75)},
		},
	}

	run := func(workers int) *Result {
		engine, err := NewEngine(&Config{AsOf: day(2022, 4, 10), Workers: workers})
		if err != nil {
			t.Fatalf("NewEngine(workers=%d): %v", workers, err)
		}
		result, err := engine.Run(context.Background(), dataset)
		if err != nil {
			t.Fatalf("Run(workers=%d): %v", workers, err)
		}
		return result
	}

	sequential := run(1)
	parallel := run(3)

	if len(sequential.Snapshots) != len(parallel.Snapshots) {
		t.Fatalf("snapshot counts differ: %d vs %d", len(sequential.Snapshots), len(parallel.Snapshots))
	}
	for i := range sequential.Snapshots {
		s, p := sequential.Snapshots[i], parallel.Snapshots[i]
		if s.OrderID != p.OrderID || !s.MonthEnd.Equal(p.MonthEnd) || !s.Debt.Equal(p.Debt) {
			t.Fatalf("snapshot %d differs between worker counts", i)
		}
	}
	for i := range sequential.ClientMonths {
		s, p := sequential.ClientMonths[i], parallel.ClientMonths[i]
		if s.ActiveClients != p.ActiveClients || s.OverdueActive != p.OverdueActive ||
			!s.TotalDebtActive.Equal(p.TotalDebtActive) {
			t.Fatalf("client month %d differs between worker counts", i)
		}
	}
}

func TestEngineRunRejectsNilDataset(t *testing.T) {
	engine, err := NewEngine(&Config{AsOf: day(2022, 12, 8), Workers: 1})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	if _, err := engine.Run(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil dataset")
	}
}

func TestEngineRunRejectsOrderWithoutID(t *testing.T) {
	engine, err := NewEngine(&Config{AsOf: day(2022, 12, 8), Workers: 1})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	dataset := &models.Dataset{
		Orders: []*models.Order{{OrderID: 0, PutAt: day(2022, 1, 1)}},
	}

	_, err = engine.Run(context.Background(), dataset)
	if err == nil {
		t.Fatal("expected contract violation error")
	}
	if !apperrors.IsCategory(err, apperrors.CategoryComputation) {
		t.Errorf("expected computation category, got %v", err)
	}
}

func TestEngineRunEmptyDataset(t *testing.T) {
	engine, err := NewEngine(&Config{AsOf: day(2022, 12, 8), Workers: 1})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	result, err := engine.Run(context.Background(), &models.Dataset{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.Installments) != 0 || len(result.InstallmentMonths) != 0 ||
		len(result.Snapshots) != 0 || len(result.ClientMonths) != 0 {
		t.Error("empty dataset must produce empty result sets")
	}
}

func TestEngineRunHonorsCancellation(t *testing.T) {
	engine, err := NewEngine(&Config{AsOf: day(2022, 12, 8), Workers: 1})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	dataset := &models.Dataset{
		Orders: []*models.Order{{OrderID: 1, PutAt: day(2022, 1, 1)}},
		Plan:   []*models.PlanEntry{{OrderID: 1, PlanAt: day(2022, 1, 31), CumulativeDue: d(10)}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := engine.Run(ctx, dataset); err == nil {
		t.Fatal("expected error when the context is already cancelled")
	}
}
