package overdue

import (
	"context"
	"fmt"
	"time"

	"golang-overdue-service/internal/models"
	apperrors "golang-overdue-service/pkg/errors"
	"golang-overdue-service/pkg/logger"
)

// Config carries the explicit parameters of a computation run. The engine
// keeps no process-wide state: everything it needs arrives here.
type Config struct {
	// AsOf is the global cutoff date. No plan or payment row dated
	// strictly after it participates in the computation; the loaders
	// enforce the truncation, the engine relies on it.
	AsOf time.Time

	// Workers is the number of goroutines used for the per-loan snapshot
	// stage. 1 (the default) keeps the run fully sequential.
	Workers int

	// ProgressInterval throttles progress logging during the snapshot
	// stage. Zero uses the tracker default.
	ProgressInterval time.Duration
}

// DefaultConfig returns an engine configuration with a sequential snapshot
// stage. AsOf must still be set by the caller.
func DefaultConfig() *Config {
	return &Config{Workers: 1}
}

// Validate validates the engine configuration.
func (c *Config) Validate() error {
	if c.AsOf.IsZero() {
		return apperrors.ConfigError(apperrors.CodeMissingConfig, "as_of", "cutoff date is required")
	}
	if c.Workers < 1 {
		return apperrors.ConfigError(apperrors.CodeInvalidConfig, "workers",
			fmt.Sprintf("workers must be at least 1, got %d", c.Workers))
	}
	return nil
}

// Result holds everything a run produces: the per-installment and per-
// month-end record sets and the two monthly summary tables derived from
// them. All fields are immutable once returned.
type Result struct {
	Installments      []*InstallmentRecord
	InstallmentMonths []*MonthlyInstallmentSummary
	Snapshots         []*Snapshot
	ClientMonths      []*MonthlyClientSummary
}

// Engine runs the full delinquency computation over one dataset.
type Engine struct {
	config *Config
	logger logger.Logger
}

// NewEngine creates an engine with the given configuration.
func NewEngine(config *Config) (*Engine, error) {
	if config == nil {
		return nil, apperrors.ConfigError(apperrors.CodeMissingConfig, "engine", "engine configuration is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("overdue_engine"),
	}, nil
}

// Run executes the computation: normalize the plan, accumulate payments,
// build installment records and their monthly rollup, then build month-end
// snapshots and the active-client rollup. The run either completes over the
// full input or fails outright; there is no partial-success mode.
func (e *Engine) Run(ctx context.Context, dataset *models.Dataset) (*Result, error) {
	if dataset == nil {
		return nil, apperrors.InternalError(apperrors.CodeUnexpectedError, "engine run",
			fmt.Errorf("dataset is nil"))
	}

	for _, order := range dataset.Orders {
		if order.OrderID <= 0 {
			// An unset grouping key this deep is an upstream contract
			// violation, not a recoverable data problem.
			return nil, apperrors.ComputeError(apperrors.CodeContractViolation, "input check",
				fmt.Errorf("order without order ID reached the engine: %s", order))
		}
	}

	e.logger.WithFields(logger.Fields{
		"orders":   len(dataset.Orders),
		"payments": len(dataset.Payments),
		"plan":     len(dataset.Plan),
		"as_of":    e.config.AsOf.Format(models.DateOnly),
	}).Info("Starting overdue computation")

	plan, err := NormalizePlan(dataset.Plan)
	if err != nil {
		return nil, err
	}

	payments, err := AccumulatePayments(dataset.Payments)
	if err != nil {
		return nil, err
	}

	installments := BuildInstallmentRecords(plan, payments)
	installmentMonths := SummarizeInstallments(installments, e.config.AsOf)
	e.logger.WithFields(logger.Fields{
		"installments": len(installments),
		"months":       len(installmentMonths),
	}).Info("Computed installment overdue records")

	grid := BuildMonthGrid(dataset.Plan, e.config.AsOf)
	snapshots, err := BuildSnapshots(ctx, dataset.Orders, plan, payments, grid, &SnapshotConfig{
		Workers:          e.config.Workers,
		ProgressInterval: e.config.ProgressInterval,
		Logger:           e.logger,
	})
	if err != nil {
		return nil, apperrors.ComputeError(apperrors.CodeProcessingError, "month-end snapshots", err)
	}

	clientMonths := SummarizeSnapshots(snapshots)
	e.logger.WithFields(logger.Fields{
		"snapshots": len(snapshots),
		"months":    len(clientMonths),
	}).Info("Computed month-end snapshots")

	return &Result{
		Installments:      installments,
		InstallmentMonths: installmentMonths,
		Snapshots:         snapshots,
		ClientMonths:      clientMonths,
	}, nil
}
