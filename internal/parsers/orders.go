package parsers

import (
	"io"

	"golang-overdue-service/internal/models"
	"golang-overdue-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// OrdersParserConfig configures the column mapping for the orders table.
type OrdersParserConfig struct {
	OrderIDColumn   string
	CreatedAtColumn string
	PutAtColumn     string
	ClosedAtColumn  string
	IssuedSumColumn string
	HasHeader       bool
	Delimiter       rune
	ColumnAliases   map[string]string
}

// DefaultOrdersParserConfig returns the column mapping used by standard
// loan data exports.
func DefaultOrdersParserConfig() *OrdersParserConfig {
	return &OrdersParserConfig{
		OrderIDColumn:   "order_id",
		CreatedAtColumn: "created_at",
		PutAtColumn:     "put_at",
		ClosedAtColumn:  "closed_at",
		IssuedSumColumn: "issued_sum",
		HasHeader:       true,
		Delimiter:       ',',
		ColumnAliases: map[string]string{
			"id":         "order_id",
			"loan_id":    "order_id",
			"created":    "created_at",
			"activated":  "put_at",
			"activation": "put_at",
			"issued":     "put_at",
			"closed":     "closed_at",
			"closure":    "closed_at",
			"amount":     "issued_sum",
			"principal":  "issued_sum",
		},
	}
}

// OrdersParser loads the loan orders table.
type OrdersParser struct {
	base   *baseParser
	config *OrdersParserConfig
	logger logger.Logger
}

// NewOrdersParser creates a parser for the orders table.
func NewOrdersParser(config *OrdersParserConfig) *OrdersParser {
	if config == nil {
		config = DefaultOrdersParserConfig()
	}
	return &OrdersParser{
		base: newBaseParser(&ParseConfig{
			HasHeader:        config.HasHeader,
			Delimiter:        config.Delimiter,
			TrimLeadingSpace: true,
			SkipEmptyRows:    true,
		}, "orders_parser"),
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("orders_parser"),
	}
}

// ParseOrders reads the orders CSV file. Rows without a parsable order id or
// activation date are dropped and counted; closure date and issued sum are
// optional. Orders are not truncated at the cutoff: lifecycle dates may
// legitimately post-date it, and activity is evaluated per query date.
func (op *OrdersParser) ParseOrders(filePath string) ([]*models.Order, *ParseStats, error) {
	file, reader, err := op.base.openFile(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	parseCtx := &parseContext{}
	required := []string{op.config.OrderIDColumn, op.config.PutAtColumn}
	if err := op.base.readHeaders(reader, parseCtx, op.config.ColumnAliases, required); err != nil {
		return nil, nil, err
	}

	stats := NewParseStats(10)
	var orders []*models.Order
	seen := make(map[int64]bool)

	for {
		record, err := op.base.readRecord(reader, parseCtx)
		if err == io.EOF {
			break
		}
		if err != nil {
			stats.AddError(&ParseError{Line: parseCtx.LineNumber + 1, Message: "malformed CSV row", Err: err})
			stats.RowsDropped++
			continue
		}
		stats.TotalLines++

		orderID, err := models.ParseOrderID(fieldValue(record, parseCtx, op.config.OrderIDColumn))
		if err != nil {
			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Field:   op.config.OrderIDColumn,
				Value:   fieldValue(record, parseCtx, op.config.OrderIDColumn),
				Message: "invalid order ID",
				Err:     err,
			})
			stats.RowsDropped++
			continue
		}

		putAt, err := models.ParseDate(fieldValue(record, parseCtx, op.config.PutAtColumn))
		if err != nil {
			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Field:   op.config.PutAtColumn,
				Value:   fieldValue(record, parseCtx, op.config.PutAtColumn),
				Message: "invalid activation date",
				Err:     err,
			})
			stats.RowsDropped++
			continue
		}

		order := models.NewOrder(orderID, putAt)

		if raw := fieldValue(record, parseCtx, op.config.CreatedAtColumn); raw != "" {
			if createdAt, err := models.ParseDate(raw); err == nil {
				order.CreatedAt = createdAt
			}
		}
		if raw := fieldValue(record, parseCtx, op.config.ClosedAtColumn); raw != "" {
			closedAt, err := models.ParseDate(raw)
			if err != nil {
				stats.AddError(&ParseError{
					Line:    parseCtx.LineNumber,
					Field:   op.config.ClosedAtColumn,
					Value:   raw,
					Message: "invalid closure date, treating order as open",
					Err:     err,
				})
			} else {
				order.ClosedAt = closedAt
			}
		}
		if raw := fieldValue(record, parseCtx, op.config.IssuedSumColumn); raw != "" {
			if issued, err := models.ParseDecimal(raw); err == nil {
				order.IssuedSum = decimal.NewNullDecimal(issued)
			}
		}

		if seen[orderID] {
			stats.Duplicates++
		}
		seen[orderID] = true

		orders = append(orders, order)
		stats.RecordsKept++
	}

	op.logger.WithFields(logger.Fields{
		"file_path": filePath,
		"orders":    len(orders),
		"stats":     stats.String(),
	}).Info("Loaded orders table")

	return orders, stats, nil
}
