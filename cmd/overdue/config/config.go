// Package config assembles component configurations from CLI flag values.
package config

import (
	"time"

	"golang-overdue-service/internal/models"
	"golang-overdue-service/internal/overdue"
	"golang-overdue-service/internal/parsers"
	"golang-overdue-service/internal/reporter"
)

// CreateOrdersParserConfig returns the parser configuration for the orders
// table, with the standard column mapping and aliases.
func CreateOrdersParserConfig() *parsers.OrdersParserConfig {
	return parsers.DefaultOrdersParserConfig()
}

// CreatePaymentsParserConfig returns the parser configuration for the
// payments table.
func CreatePaymentsParserConfig() *parsers.PaymentsParserConfig {
	return parsers.DefaultPaymentsParserConfig()
}

// CreatePlanParserConfig returns the parser configuration for the plan table.
func CreatePlanParserConfig() *parsers.PlanParserConfig {
	return parsers.DefaultPlanParserConfig()
}

// CreateEngineConfig builds the engine configuration from CLI values.
func CreateEngineConfig(asOf time.Time, workers int, progressInterval time.Duration) *overdue.Config {
	config := overdue.DefaultConfig()
	config.AsOf = asOf
	if workers > 0 {
		config.Workers = workers
	}
	config.ProgressInterval = progressInterval
	return config
}

// CreateReportConfig builds the report configuration from CLI values.
func CreateReportConfig(format, outputDir string, asOf time.Time) *reporter.ReportConfig {
	config := reporter.DefaultReportConfig()
	config.Format = reporter.OutputFormat(format)
	if outputDir != "" {
		config.OutputDir = outputDir
	}
	config.AsOf = asOf.Format(models.DateOnly)
	return config
}
