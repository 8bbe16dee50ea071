// Package errors provides structured, coded errors for millplan.
// Per-order planning failures carry a code so they can be routed to the
// unmatched-orders report instead of aborting a run.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code identifies an error class for programmatic handling.
type Code string

const (
	// Input errors (1xx)
	CodeFileNotFound  Code = "E101"
	CodeInvalidFormat Code = "E103"
	CodeMissingColumn Code = "E104"
	CodeInvalidConfig Code = "E106"

	// Output errors (3xx)
	CodeWriteFailed  Code = "E301"
	CodeUploadFailed Code = "E302"

	// Cache and store errors (5xx)
	CodeCacheFailed Code = "E501"
	CodeStoreFailed Code = "E502"

	// Planning errors (6xx), non-fatal per order
	CodeBlendNotMapped Code = "E601"
	CodeNoMachineData  Code = "E602"
	CodeZeroThroughput Code = "E603"
	CodeMissingField   Code = "E604"

	CodeUnknown Code = "E999"
)

// PlanError is the base error type for all millplan errors.
type PlanError struct {
	Code    Code
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface. Context keys are printed sorted so
// messages are stable across runs.
func (e *PlanError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		sb.WriteString(")")
	}

	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}

	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *PlanError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a PlanError with the same code.
func (e *PlanError) Is(target error) bool {
	if t, ok := target.(*PlanError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithContext adds context to the error.
func (e *PlanError) WithContext(key string, value interface{}) *PlanError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new PlanError.
func New(code Code, message string) *PlanError {
	return &PlanError{Code: code, Message: message}
}

// Wrap wraps an existing error with a code and message.
func Wrap(err error, code Code, message string) *PlanError {
	if err == nil {
		return nil
	}

	return &PlanError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *PlanError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// --- Convenience constructors ---

// FileNotFound creates a file not found error.
func FileNotFound(path string) *PlanError {
	return New(CodeFileNotFound, "file not found").WithContext("path", path)
}

// MissingColumn creates a missing column error.
func MissingColumn(column string, available []string) *PlanError {
	return New(CodeMissingColumn, "required column not found").
		WithContext("column", column).
		WithContext("available", available)
}

// InvalidConfig creates a configuration validation error.
func InvalidConfig(field, reason string) *PlanError {
	return New(CodeInvalidConfig, reason).WithContext("field", field)
}

// BlendNotMapped reports composition text without a canonical blend code.
func BlendNotMapped(composition string) *PlanError {
	return New(CodeBlendNotMapped, "Blend not mapped: "+composition)
}

// NoMachineData reports that no capability row matches the order.
func NoMachineData(count int, blend, yarnType string) *PlanError {
	return New(CodeNoMachineData, "No machine data").
		WithContext("count", count).
		WithContext("blend", blend).
		WithContext("yarn_type", yarnType)
}

// ZeroThroughput reports a non-positive computed production rate.
func ZeroThroughput(line string) *PlanError {
	return New(CodeZeroThroughput, "Calculated zero throughput").WithContext("line", line)
}

// MissingField reports a blank required order field.
func MissingField(field string) *PlanError {
	return New(CodeMissingField, "Missing field: "+field).WithContext("field", field)
}

// --- Error checking utilities ---

// IsCode checks if an error has a specific code.
func IsCode(err error, code Code) bool {
	var pErr *PlanError
	if errors.As(err, &pErr) {
		return pErr.Code == code
	}
	return false
}

// GetCode extracts the error code from an error.
func GetCode(err error) Code {
	var pErr *PlanError
	if errors.As(err, &pErr) {
		return pErr.Code
	}
	return CodeUnknown
}

// Reason returns the human-readable reason for the unmatched-orders report:
// the bare message of a PlanError, or the error text otherwise.
func Reason(err error) string {
	var pErr *PlanError
	if errors.As(err, &pErr) {
		return pErr.Message
	}
	return "Error: " + err.Error()
}

// IsOrderLevel reports whether err only disqualifies a single order.
func IsOrderLevel(err error) bool {
	switch GetCode(err) {
	case CodeBlendNotMapped, CodeNoMachineData, CodeZeroThroughput, CodeMissingField:
		return true
	default:
		return false
	}
}

// MultiError collects multiple errors.
type MultiError struct {
	Errors []error
}

// Error implements the error interface.
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors occurred:\n", len(m.Errors)))
	for i, err := range m.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Add adds an error to the collection.
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// HasErrors returns true if any errors were collected.
func (m *MultiError) HasErrors() bool {
	return len(m.Errors) > 0
}

// Combined returns nil if no errors, the single error if one, or the MultiError.
func (m *MultiError) Combined() error {
	switch len(m.Errors) {
	case 0:
		return nil
	case 1:
		return m.Errors[0]
	default:
		return m
	}
}
