package parsers

import (
	"io"
	"time"

	"golang-overdue-service/internal/models"
	"golang-overdue-service/pkg/logger"
)

// PlanParserConfig configures the column mapping for the repayment plan table.
type PlanParserConfig struct {
	OrderIDColumn      string
	PlanAtColumn       string
	PlanSumTotalColumn string
	HasHeader          bool
	Delimiter          rune
	ColumnAliases      map[string]string
}

// DefaultPlanParserConfig returns the column mapping used by standard
// loan data exports.
func DefaultPlanParserConfig() *PlanParserConfig {
	return &PlanParserConfig{
		OrderIDColumn:      "order_id",
		PlanAtColumn:       "plan_at",
		PlanSumTotalColumn: "plan_sum_total",
		HasHeader:          true,
		Delimiter:          ',',
		ColumnAliases: map[string]string{
			"id":             "order_id",
			"loan_id":        "order_id",
			"date":           "plan_at",
			"due_date":       "plan_at",
			"scheduled_date": "plan_at",
			"plan_sum":       "plan_sum_total",
			"amount_due":     "plan_sum_total",
			"cumulative_due": "plan_sum_total",
		},
	}
}

// PlanParser loads the cumulative repayment plan table.
type PlanParser struct {
	base   *baseParser
	config *PlanParserConfig
	logger logger.Logger
}

// NewPlanParser creates a parser for the plan table.
func NewPlanParser(config *PlanParserConfig) *PlanParser {
	if config == nil {
		config = DefaultPlanParserConfig()
	}
	return &PlanParser{
		base: newBaseParser(&ParseConfig{
			HasHeader:        config.HasHeader,
			Delimiter:        config.Delimiter,
			TrimLeadingSpace: true,
			SkipEmptyRows:    true,
		}, "plan_parser"),
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("plan_parser"),
	}
}

// ParsePlan reads the plan CSV file. Rows with a missing or unparsable order
// id, scheduled date, or cumulative amount are dropped and counted; rows
// dated strictly after the cutoff never survive. Decreasing cumulative
// amounts are NOT rejected here: the engine repairs them.
func (pp *PlanParser) ParsePlan(filePath string, cutoff time.Time) ([]*models.PlanEntry, *ParseStats, error) {
	file, reader, err := pp.base.openFile(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	parseCtx := &parseContext{}
	required := []string{pp.config.OrderIDColumn, pp.config.PlanAtColumn, pp.config.PlanSumTotalColumn}
	if err := pp.base.readHeaders(reader, parseCtx, pp.config.ColumnAliases, required); err != nil {
		return nil, nil, err
	}

	stats := NewParseStats(10)
	var entries []*models.PlanEntry

	for {
		record, err := pp.base.readRecord(reader, parseCtx)
		if err == io.EOF {
			break
		}
		if err != nil {
			stats.AddError(&ParseError{Line: parseCtx.LineNumber + 1, Message: "malformed CSV row", Err: err})
			stats.RowsDropped++
			continue
		}
		stats.TotalLines++

		orderID, err := models.ParseOrderID(fieldValue(record, parseCtx, pp.config.OrderIDColumn))
		if err != nil {
			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Field:   pp.config.OrderIDColumn,
				Value:   fieldValue(record, parseCtx, pp.config.OrderIDColumn),
				Message: "invalid order ID",
				Err:     err,
			})
			stats.RowsDropped++
			continue
		}

		planAt, err := models.ParseDate(fieldValue(record, parseCtx, pp.config.PlanAtColumn))
		if err != nil {
			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Field:   pp.config.PlanAtColumn,
				Value:   fieldValue(record, parseCtx, pp.config.PlanAtColumn),
				Message: "invalid plan date",
				Err:     err,
			})
			stats.RowsDropped++
			continue
		}

		due, err := models.ParseDecimal(fieldValue(record, parseCtx, pp.config.PlanSumTotalColumn))
		if err != nil {
			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Field:   pp.config.PlanSumTotalColumn,
				Value:   fieldValue(record, parseCtx, pp.config.PlanSumTotalColumn),
				Message: "invalid cumulative amount",
				Err:     err,
			})
			stats.RowsDropped++
			continue
		}

		if planAt.After(cutoff) {
			stats.AfterCutoff++
			continue
		}

		entries = append(entries, models.NewPlanEntry(orderID, planAt, due))
		stats.RecordsKept++
	}

	pp.logger.WithFields(logger.Fields{
		"file_path": filePath,
		"entries":   len(entries),
		"cutoff":    cutoff.Format(models.DateOnly),
		"stats":     stats.String(),
	}).Info("Loaded plan table")

	return entries, stats, nil
}
