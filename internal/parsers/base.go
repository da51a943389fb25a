// Package parsers loads the three input tables of the overdue analyzer from
// CSV files: loan orders, actual payments, and the cumulative repayment plan.
//
// The loaders own the cleaning contract of the computation core: rows with
// missing required keys are dropped, exact-duplicate payments are removed,
// and dated rows strictly after the cutoff date never reach the engine.
// Each loader reports what it kept and dropped through ParseStats.
package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang-overdue-service/pkg/errors"
	"golang-overdue-service/pkg/logger"
)

// ParseError records a problem with a single CSV row or field.
type ParseError struct {
	Line    int
	Field   string
	Value   string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse error at line %d (%s='%s'): %s: %v",
			e.Line, e.Field, e.Value, e.Message, e.Err)
	}
	return fmt.Sprintf("parse error at line %d (%s='%s'): %s",
		e.Line, e.Field, e.Value, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseConfig holds the CSV-level settings shared by all table loaders.
type ParseConfig struct {
	HasHeader        bool
	Delimiter        rune
	TrimLeadingSpace bool
	SkipEmptyRows    bool
}

// DefaultParseConfig returns a configuration with sensible defaults
func DefaultParseConfig() *ParseConfig {
	return &ParseConfig{
		HasHeader:        true,
		Delimiter:        ',',
		TrimLeadingSpace: true,
		SkipEmptyRows:    true,
	}
}

// baseParser provides the CSV plumbing shared by the three table loaders.
type baseParser struct {
	config *ParseConfig
	logger logger.Logger
}

func newBaseParser(config *ParseConfig, component string) *baseParser {
	if config == nil {
		config = DefaultParseConfig()
	}
	return &baseParser{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent(component),
	}
}

// parseContext holds state during a single file's parsing run.
type parseContext struct {
	LineNumber int
	Headers    []string
	HeaderMap  map[string]int
}

// columnIndex returns the index of a column by name, or -1 if not found.
// Lookup is case-insensitive.
func (pc *parseContext) columnIndex(name string) int {
	if index, ok := pc.HeaderMap[name]; ok {
		return index
	}
	lower := strings.ToLower(name)
	for header, index := range pc.HeaderMap {
		if strings.ToLower(header) == lower {
			return index
		}
	}
	return -1
}

// openFile opens a CSV file and returns a configured csv.Reader.
func (bp *baseParser) openFile(filePath string) (*os.File, *csv.Reader, error) {
	bp.logger.WithField("file_path", filePath).Debug("Opening CSV file")

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.FileError(errors.CodeFileNotFound, filePath, err)
		}
		if os.IsPermission(err) {
			return nil, nil, errors.FileError(errors.CodeFilePermission, filePath, err)
		}
		return nil, nil, errors.FileError(errors.CodeFileCorrupted, filePath, err)
	}

	reader := csv.NewReader(file)
	reader.Comma = bp.config.Delimiter
	reader.TrimLeadingSpace = bp.config.TrimLeadingSpace
	reader.FieldsPerRecord = -1

	return file, reader, nil
}

// readHeaders reads the header row, applies column aliases, and checks that
// all required columns are present.
func (bp *baseParser) readHeaders(reader *csv.Reader, parseCtx *parseContext, aliases map[string]string, required []string) error {
	if !bp.config.HasHeader {
		parseCtx.Headers = append([]string(nil), required...)
		bp.buildHeaderMap(parseCtx, aliases)
		return nil
	}

	headers, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return errors.ValidationError(errors.CodeMissingField, "file_content", "empty", nil).
				WithSuggestion("Ensure the file contains header and data rows")
		}
		return errors.ParseError(errors.CodeInvalidFormat, "", 1, "headers", "", err).
			WithSuggestion("Check the file format and ensure it's a valid CSV")
	}

	parseCtx.LineNumber++
	parseCtx.Headers = make([]string, len(headers))
	for i, header := range headers {
		parseCtx.Headers[i] = strings.TrimSpace(header)
	}
	bp.buildHeaderMap(parseCtx, aliases)

	var missing []string
	for _, name := range required {
		if parseCtx.columnIndex(name) == -1 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		bp.logger.WithFields(logger.Fields{
			"missing_headers":   missing,
			"available_headers": parseCtx.Headers,
		}).Error("Required headers are missing")

		return errors.ParseError(errors.CodeMissingColumn, "", parseCtx.LineNumber,
			"headers", strings.Join(missing, ", "), nil).
			WithSuggestion(fmt.Sprintf("Ensure the CSV file contains these headers: %s", strings.Join(missing, ", ")))
	}

	return nil
}

// buildHeaderMap maps canonical header names to column indices, translating
// known aliases to their canonical form.
func (bp *baseParser) buildHeaderMap(parseCtx *parseContext, aliases map[string]string) {
	parseCtx.HeaderMap = make(map[string]int, len(parseCtx.Headers))
	for i, header := range parseCtx.Headers {
		name := header
		if canonical, ok := aliases[strings.ToLower(header)]; ok {
			name = canonical
		}
		parseCtx.HeaderMap[name] = i
	}
}

// readRecord reads the next non-empty CSV record.
func (bp *baseParser) readRecord(reader *csv.Reader, parseCtx *parseContext) ([]string, error) {
	for {
		record, err := reader.Read()
		if err != nil {
			return nil, err // io.EOF is the normal termination
		}

		parseCtx.LineNumber++

		if bp.config.SkipEmptyRows && isEmptyRecord(record) {
			continue
		}
		return record, nil
	}
}

func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// fieldValue retrieves a field value by canonical column name. A column that
// is absent or out of range yields an empty string; optional columns rely on
// this.
func fieldValue(record []string, parseCtx *parseContext, name string) string {
	index := parseCtx.columnIndex(name)
	if index == -1 || index >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[index])
}

// ParseStats summarizes a single table's loading run.
type ParseStats struct {
	TotalLines   int
	RecordsKept  int
	RowsDropped  int
	Duplicates   int
	AfterCutoff  int
	ErrorCount   int
	Errors       []*ParseError
	maxKeptError int
}

// NewParseStats creates a ParseStats that keeps at most maxErrors samples.
func NewParseStats(maxErrors int) *ParseStats {
	return &ParseStats{maxKeptError: maxErrors}
}

// AddError records a row-level error; only the first maxErrors are retained.
func (ps *ParseStats) AddError(err *ParseError) {
	ps.ErrorCount++
	if ps.maxKeptError <= 0 || len(ps.Errors) < ps.maxKeptError {
		ps.Errors = append(ps.Errors, err)
	}
}

// HasErrors returns true if any row failed to parse.
func (ps *ParseStats) HasErrors() bool {
	return ps.ErrorCount > 0
}

// String returns a human-readable summary of the loading run.
func (ps *ParseStats) String() string {
	return fmt.Sprintf("read %d lines, kept %d records (%d dropped, %d duplicates, %d after cutoff, %d errors)",
		ps.TotalLines, ps.RecordsKept, ps.RowsDropped, ps.Duplicates, ps.AfterCutoff, ps.ErrorCount)
}
