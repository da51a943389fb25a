package parsers

import (
	"io"
	"time"

	"golang-overdue-service/internal/models"
	"golang-overdue-service/pkg/logger"
)

// PaymentsParserConfig configures the column mapping for the payments table.
type PaymentsParserConfig struct {
	OrderIDColumn string
	PaidAtColumn  string
	PaidSumColumn string
	HasHeader     bool
	Delimiter     rune
	ColumnAliases map[string]string
}

// DefaultPaymentsParserConfig returns the column mapping used by standard
// loan data exports.
func DefaultPaymentsParserConfig() *PaymentsParserConfig {
	return &PaymentsParserConfig{
		OrderIDColumn: "order_id",
		PaidAtColumn:  "paid_at",
		PaidSumColumn: "paid_sum",
		HasHeader:     true,
		Delimiter:     ',',
		ColumnAliases: map[string]string{
			"id":           "order_id",
			"loan_id":      "order_id",
			"date":         "paid_at",
			"payment_date": "paid_at",
			"paid":         "paid_sum",
			"amount":       "paid_sum",
			"sum":          "paid_sum",
		},
	}
}

// PaymentsParser loads the actual payments table.
type PaymentsParser struct {
	base   *baseParser
	config *PaymentsParserConfig
	logger logger.Logger
}

// NewPaymentsParser creates a parser for the payments table.
func NewPaymentsParser(config *PaymentsParserConfig) *PaymentsParser {
	if config == nil {
		config = DefaultPaymentsParserConfig()
	}
	return &PaymentsParser{
		base: newBaseParser(&ParseConfig{
			HasHeader:        config.HasHeader,
			Delimiter:        config.Delimiter,
			TrimLeadingSpace: true,
			SkipEmptyRows:    true,
		}, "payments_parser"),
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("payments_parser"),
	}
}

// ParsePayments reads the payments CSV file and applies the cleaning contract:
// rows with a missing or unparsable order id, date, or amount are dropped,
// exact duplicates on (order id, date, amount) are removed, and rows dated
// strictly after the cutoff never survive.
func (pp *PaymentsParser) ParsePayments(filePath string, cutoff time.Time) ([]*models.Payment, *ParseStats, error) {
	file, reader, err := pp.base.openFile(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	parseCtx := &parseContext{}
	required := []string{pp.config.OrderIDColumn, pp.config.PaidAtColumn, pp.config.PaidSumColumn}
	if err := pp.base.readHeaders(reader, parseCtx, pp.config.ColumnAliases, required); err != nil {
		return nil, nil, err
	}

	stats := NewParseStats(10)
	var payments []*models.Payment
	seen := make(map[string]bool)

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

		paidAt, err := models.ParseDate(fieldValue(record, parseCtx, pp.config.PaidAtColumn))
		if err != nil {
			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Field:   pp.config.PaidAtColumn,
				Value:   fieldValue(record, parseCtx, pp.config.PaidAtColumn),
				Message: "invalid payment date",
				Err:     err,
			})
			stats.RowsDropped++
			continue
		}

		amount, err := models.ParseDecimal(fieldValue(record, parseCtx, pp.config.PaidSumColumn))
		if err != nil {
			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Field:   pp.config.PaidSumColumn,
				Value:   fieldValue(record, parseCtx, pp.config.PaidSumColumn),
				Message: "invalid payment amount",
				Err:     err,
			})
			stats.RowsDropped++
			continue
		}

		if paidAt.After(cutoff) {
			stats.AfterCutoff++
			continue
		}

		payment := models.NewPayment(orderID, paidAt, amount)
		if key := payment.Key(); seen[key] {
			stats.Duplicates++
			continue
		} else {
			seen[key] = true
		}

		payments = append(payments, payment)
		stats.RecordsKept++
	}

	pp.logger.WithFields(logger.Fields{
		"file_path": filePath,
		"payments":  len(payments),
		"cutoff":    cutoff.Format(models.DateOnly),
		"stats":     stats.String(),
	}).Info("Loaded payments table")

	return payments, stats, nil
}
