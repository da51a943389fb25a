// Package reporter renders the two monthly output tables of the overdue
// analyzer and the short closing summary.
//
// The monthly installment table ("overdue by payment-due-month") and the
// monthly client table ("overdue by active-client snapshot") are always
// persisted as CSV files; the same tables can additionally be rendered to a
// writer as console text, JSON, or CSV.
//
// Undefined aggregates (average debt over an empty overdue subset) are
// rendered as empty CSV cells and JSON nulls, never as zero: zero would
// falsely imply a clean month.
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"golang-overdue-service/internal/models"
	"golang-overdue-service/internal/overdue"
	"golang-overdue-service/pkg/errors"
	"golang-overdue-service/pkg/logger"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// InstallmentTableFile and ClientTableFile are the persisted table names.
const (
	InstallmentTableFile = "instalment_month.csv"
	ClientTableFile      = "clients_month.csv"
)

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format    OutputFormat `json:"format"`
	OutputDir string       `json:"output_dir"`
	AsOf      string       `json:"as_of"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:    FormatConsole,
		OutputDir: "output",
	}
}

// ReportGenerator renders and persists computation results.
type ReportGenerator struct {
	config *ReportConfig
	logger logger.Logger
}

// NewReportGenerator creates a generator with the given configuration.
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if !config.Format.IsValid() {
		return nil, errors.ConfigError(errors.CodeInvalidConfig, "output_format",
			fmt.Sprintf("invalid output format '%s': valid formats are console, json, csv", config.Format))
	}
	return &ReportGenerator{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("reporter"),
	}, nil
}

// SaveTables writes both monthly tables as CSV files into the configured
// output directory and returns their paths.
func (rg *ReportGenerator) SaveTables(result *overdue.Result) (string, string, error) {
	if err := os.MkdirAll(rg.config.OutputDir, 0755); err != nil {
		return "", "", errors.FileError(errors.CodeWriteFailed, rg.config.OutputDir, err)
	}

	installmentPath := filepath.Join(rg.config.OutputDir, InstallmentTableFile)
	if err := rg.writeTableFile(installmentPath, func(w io.Writer) error {
		return writeInstallmentCSV(w, result.InstallmentMonths)
	}); err != nil {
		return "", "", err
	}

	clientPath := filepath.Join(rg.config.OutputDir, ClientTableFile)
	if err := rg.writeTableFile(clientPath, func(w io.Writer) error {
		return writeClientCSV(w, result.ClientMonths)
	}); err != nil {
		return "", "", err
	}

	rg.logger.WithFields(logger.Fields{
		"instalment_table": installmentPath,
		"clients_table":    clientPath,
	}).Info("Saved monthly tables")

	return installmentPath, clientPath, nil
}

func (rg *ReportGenerator) writeTableFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.FileError(errors.CodeWriteFailed, path, err)
	}
	defer file.Close()

	if err := write(file); err != nil {
		return errors.FileError(errors.CodeWriteFailed, path, err)
	}
	return nil
}

// WriteReport renders both tables and the closing summary to w in the
// configured format.
func (rg *ReportGenerator) WriteReport(result *overdue.Result, w io.Writer) error {
	switch rg.config.Format {
	case FormatJSON:
		return rg.writeJSON(result, w)
	case FormatCSV:
		if err := writeInstallmentCSV(w, result.InstallmentMonths); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		return writeClientCSV(w, result.ClientMonths)
	default:
		return rg.writeConsole(result, w)
	}
}

// monthlyInstallmentRow is the serialized form of a monthly installment
// summary, with dates rendered as plain dates.
type monthlyInstallmentRow struct {
	Month               string      `json:"month"`
	Installments        int         `json:"instalments"`
	OverdueInstallments int         `json:"overdue_instalments"`
	TotalDebt           string      `json:"total_debt"`
	AvgDebtOverdue      interface{} `json:"avg_debt_overdue"`
	OverdueRate         float64     `json:"overdue_rate"`
}

type monthlyClientRow struct {
	MonthEnd             string      `json:"month_end"`
	ActiveClients        int         `json:"active_clients"`
	OverdueActive        int         `json:"overdue_active"`
	TotalDebtActive      string      `json:"total_debt_active"`
	AvgDebtOverdueActive interface{} `json:"avg_debt_overdue_active"`
	OverdueRateActive    float64     `json:"overdue_rate_active"`
}

func installmentRows(summaries []*overdue.MonthlyInstallmentSummary) []monthlyInstallmentRow {
	rows := make([]monthlyInstallmentRow, len(summaries))
	for i, s := range summaries {
		rows[i] = monthlyInstallmentRow{
			Month:               s.Month.Format(models.DateOnly),
			Installments:        s.Installments,
			OverdueInstallments: s.OverdueInstallments,
			TotalDebt:           s.TotalDebt.String(),
			OverdueRate:         s.OverdueRate,
		}
		if s.AvgDebtOverdue.Valid {
			rows[i].AvgDebtOverdue = s.AvgDebtOverdue.Decimal.String()
		}
	}
	return rows
}

func clientRows(summaries []*overdue.MonthlyClientSummary) []monthlyClientRow {
	rows := make([]monthlyClientRow, len(summaries))
	for i, s := range summaries {
		rows[i] = monthlyClientRow{
			MonthEnd:          s.MonthEnd.Format(models.DateOnly),
			ActiveClients:     s.ActiveClients,
			OverdueActive:     s.OverdueActive,
			TotalDebtActive:   s.TotalDebtActive.String(),
			OverdueRateActive: s.OverdueRateActive,
		}
		if s.AvgDebtOverdueActive.Valid {
			rows[i].AvgDebtOverdueActive = s.AvgDebtOverdueActive.Decimal.String()
		}
	}
	return rows
}

func writeInstallmentCSV(w io.Writer, summaries []*overdue.MonthlyInstallmentSummary) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"month", "instalments", "overdue_instalments",
		"total_debt", "avg_debt_overdue", "overdue_rate"}); err != nil {
		return err
	}

	for _, row := range installmentRows(summaries) {
		avg := ""
		if row.AvgDebtOverdue != nil {
			avg = row.AvgDebtOverdue.(string)
		}
		if err := writer.Write([]string{
			row.Month,
			strconv.Itoa(row.Installments),
			strconv.Itoa(row.OverdueInstallments),
			row.TotalDebt,
			avg,
			formatRate(row.OverdueRate),
		}); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeClientCSV(w io.Writer, summaries []*overdue.MonthlyClientSummary) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"month_end", "active_clients", "overdue_active",
		"total_debt_active", "avg_debt_overdue_active", "overdue_rate_active"}); err != nil {
		return err
	}

	for _, row := range clientRows(summaries) {
		avg := ""
		if row.AvgDebtOverdueActive != nil {
			avg = row.AvgDebtOverdueActive.(string)
		}
		if err := writer.Write([]string{
			row.MonthEnd,
			strconv.Itoa(row.ActiveClients),
			strconv.Itoa(row.OverdueActive),
			row.TotalDebtActive,
			avg,
			formatRate(row.OverdueRateActive),
		}); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64)
}

func (rg *ReportGenerator) writeJSON(result *overdue.Result, w io.Writer) error {
	payload := struct {
		AsOf             string                  `json:"as_of,omitempty"`
		InstalmentMonths []monthlyInstallmentRow `json:"instalment_month"`
		ClientMonths     []monthlyClientRow      `json:"clients_month"`
	}{
		AsOf:             rg.config.AsOf,
		InstalmentMonths: installmentRows(result.InstallmentMonths),
		ClientMonths:     clientRows(result.ClientMonths),
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

func (rg *ReportGenerator) writeConsole(result *overdue.Result, w io.Writer) error {
	fmt.Fprintf(w, "Overdue by payment-due-month (%d months)\n", len(result.InstallmentMonths))
	fmt.Fprintf(w, "%-12s %12s %10s %14s %14s %10s\n",
		"month", "instalments", "overdue", "total_debt", "avg_debt", "rate")
	for _, s := range result.InstallmentMonths {
		avg := "-"
		if s.AvgDebtOverdue.Valid {
			avg = s.AvgDebtOverdue.Decimal.StringFixed(2)
		}
		fmt.Fprintf(w, "%-12s %12d %10d %14s %14s %9.1f%%\n",
			s.Month.Format("2006-01"), s.Installments, s.OverdueInstallments,
			s.TotalDebt.StringFixed(2), avg, s.OverdueRate*100)
	}

	fmt.Fprintf(w, "\nOverdue by active-client snapshot (%d months)\n", len(result.ClientMonths))
	fmt.Fprintf(w, "%-12s %12s %10s %14s %14s %10s\n",
		"month_end", "active", "overdue", "total_debt", "avg_debt", "rate")
	for _, s := range result.ClientMonths {
		avg := "-"
		if s.AvgDebtOverdueActive.Valid {
			avg = s.AvgDebtOverdueActive.Decimal.StringFixed(2)
		}
		fmt.Fprintf(w, "%-12s %12d %10d %14s %14s %9.1f%%\n",
			s.MonthEnd.Format(models.DateOnly), s.ActiveClients, s.OverdueActive,
			s.TotalDebtActive.StringFixed(2), avg, s.OverdueRateActive*100)
	}

	rg.writeSummary(result, w)
	return nil
}

// writeSummary prints the closing narrative: how the active-client overdue
// share moved over the observed period and which due-month was heaviest.
func (rg *ReportGenerator) writeSummary(result *overdue.Result, w io.Writer) {
	fmt.Fprintf(w, "\nSummary\n")
	fmt.Fprintf(w, "  Debt is measured against the schedule: paid below plan at a date means overdue;\n")
	fmt.Fprintf(w, "  a client who catches up later stops counting as overdue from that point on.\n")

	if n := len(result.ClientMonths); n > 0 {
		first := result.ClientMonths[0]
		last := result.ClientMonths[n-1]
		fmt.Fprintf(w, "  Clients: share with debt moved from %.1f%% (%s) to %.1f%% (%s).\n",
			first.OverdueRateActive*100, first.MonthEnd.Format("2006-01"),
			last.OverdueRateActive*100, last.MonthEnd.Format("2006-01"))
	}

	if len(result.InstallmentMonths) > 0 {
		peak := result.InstallmentMonths[0]
		for _, s := range result.InstallmentMonths[1:] {
			if s.OverdueRate > peak.OverdueRate {
				peak = s
			}
		}
		fmt.Fprintf(w, "  Instalments: heaviest due-month was %s with %.1f%% overdue.\n",
			peak.Month.Format("2006-01"), peak.OverdueRate*100)
	}

	if rg.config.AsOf != "" {
		fmt.Fprintf(w, "  Data truncated at %s; nothing after that date participates.\n", rg.config.AsOf)
	}
}
