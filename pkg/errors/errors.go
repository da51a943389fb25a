// Package errors defines the error taxonomy for the overdue analyzer.
//
// Every error surfaced to the user carries a category, a specific code, an
// optional suggestion, and a captured stack trace. The category determines the
// process exit code, so failures are distinguishable in scripts and pipelines.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryFile          ErrorCategory = "file"
	CategoryParse         ErrorCategory = "parse"
	CategoryValidation    ErrorCategory = "validation"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryComputation   ErrorCategory = "computation"
	CategoryInternal      ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// File errors
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"
	CodeFileCorrupted  ErrorCode = "file_corrupted"
	CodeWriteFailed    ErrorCode = "write_failed"

	// Parse errors
	CodeInvalidFormat ErrorCode = "invalid_format"
	CodeMissingColumn ErrorCode = "missing_column"
	CodeInvalidData   ErrorCode = "invalid_data"

	// Validation errors
	CodeInvalidAmount ErrorCode = "invalid_amount"
	CodeInvalidDate   ErrorCode = "invalid_date"
	CodeMissingField  ErrorCode = "missing_field"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Computation errors
	CodeContractViolation ErrorCode = "contract_violation"
	CodeProcessingError   ErrorCode = "processing_error"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// OverdueError is the base error type for all application errors
type OverdueError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *OverdueError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *OverdueError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *OverdueError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryComputation, CategoryInternal:
		return 5
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *OverdueError) WithContext(key string, value interface{}) *OverdueError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *OverdueError) WithSuggestion(suggestion string) *OverdueError {
	e.Suggestion = suggestion
	return e
}

// FormatDetailed returns a multi-line description including context entries,
// suitable for verbose output.
func (e *OverdueError) FormatDetailed() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s/%s] %s", e.Category, e.Code, e.Message))
	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("\n  suggestion: %s", e.Suggestion))
	}
	for key, value := range e.Context {
		sb.WriteString(fmt.Sprintf("\n  %s: %v", key, value))
	}
	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf("\n  cause: %v", e.Cause))
	}
	return sb.String()
}

func newError(category ErrorCategory, code ErrorCode, message string, cause error) *OverdueError {
	err := &OverdueError{
		Category: category,
		Code:     code,
		Message:  message,
		Cause:    cause,
	}

	// Capture a stack trace at construction time
	if tracer, ok := errors.WithStack(err).(interface{ StackTrace() errors.StackTrace }); ok {
		err.StackTrace = tracer.StackTrace()
	}

	return err
}

// FileError creates a file-related error for the given path
func FileError(code ErrorCode, path string, cause error) *OverdueError {
	var message string
	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied: %s", path)
	case CodeFileCorrupted:
		message = fmt.Sprintf("file appears to be corrupted: %s", path)
	case CodeWriteFailed:
		message = fmt.Sprintf("failed to write file: %s", path)
	default:
		message = fmt.Sprintf("file error: %s", path)
	}

	return newError(CategoryFile, code, message, cause).WithContext("path", path)
}

// ParseError creates a parse error tied to a file location
func ParseError(code ErrorCode, file string, line int, field, value string, cause error) *OverdueError {
	message := fmt.Sprintf("parse error at line %d", line)
	if field != "" {
		message = fmt.Sprintf("%s, field '%s'", message, field)
	}
	if value != "" {
		message = fmt.Sprintf("%s (value '%s')", message, value)
	}

	err := newError(CategoryParse, code, message, cause).
		WithContext("line", line)
	if file != "" {
		err = err.WithContext("file", file)
	}
	if field != "" {
		err = err.WithContext("field", field)
	}
	return err
}

// ValidationError creates a validation error for a named field
func ValidationError(code ErrorCode, field string, value interface{}, cause error) *OverdueError {
	message := fmt.Sprintf("invalid value for %s: %v", field, value)
	return newError(CategoryValidation, code, message, cause).
		WithContext("field", field).
		WithContext("value", value)
}

// ConfigError creates a configuration error
func ConfigError(code ErrorCode, setting, message string) *OverdueError {
	return newError(CategoryConfiguration, code, message, nil).
		WithContext("setting", setting)
}

// ComputeError creates an error for failures inside the computation core
func ComputeError(code ErrorCode, stage string, cause error) *OverdueError {
	message := fmt.Sprintf("computation failed during %s", stage)
	return newError(CategoryComputation, code, message, cause).
		WithContext("stage", stage)
}

// InternalError creates an error for unexpected internal conditions
func InternalError(code ErrorCode, operation string, cause error) *OverdueError {
	message := fmt.Sprintf("internal error during %s", operation)
	return newError(CategoryInternal, code, message, cause).
		WithContext("operation", operation)
}

// GetCategory extracts the category from any error, defaulting to internal
func GetCategory(err error) ErrorCategory {
	var overdueErr *OverdueError
	if errors.As(err, &overdueErr) {
		return overdueErr.Category
	}
	return CategoryInternal
}

// GetExitCode extracts the exit code from any error
func GetExitCode(err error) int {
	var overdueErr *OverdueError
	if errors.As(err, &overdueErr) {
		return overdueErr.GetExitCode()
	}
	return 1
}

// IsCategory reports whether the error belongs to the given category
func IsCategory(err error, category ErrorCategory) bool {
	return GetCategory(err) == category
}
