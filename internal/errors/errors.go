package errors

import (
	"errors"
	"fmt"
)

// GazError is the structured error type for the gazetteer.
// It carries enough context for logging and for the CLI to decide
// whether a run must abort.
type GazError struct {
	// Code is the unique error code (e.g., "ERR_202_MALFORMED_RECORD").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Input, Baseline, ...).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs, such as
	// the number of records processed before an input error.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error
}

// Error implements the error interface.
func (e *GazError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *GazError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with GazError.
func (e *GazError) Is(target error) bool {
	if t, ok := target.(*GazError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *GazError) WithDetail(key, value string) *GazError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new GazError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *GazError {
	return &GazError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates a GazError from an existing error.
// The error's message becomes the GazError message.
func Wrap(code string, err error) *GazError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// InputError creates a snapshot/record input error.
func InputError(message string, cause error) *GazError {
	return New(ErrCodeMalformedRecord, message, cause)
}

// BaselineError creates a fatal baseline-load error.
func BaselineError(message string, cause error) *GazError {
	return New(ErrCodeBaselineColumns, message, cause)
}

// ResourceError creates an output or store I/O error.
func ResourceError(message string, cause error) *GazError {
	return New(ErrCodeStoreWrite, message, cause)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *GazError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// IsFatal reports whether err requires aborting the current run.
// Plain errors are treated as fatal.
func IsFatal(err error) bool {
	var ge *GazError
	if errors.As(err, &ge) {
		return ge.Severity == SeverityFatal
	}
	return err != nil
}

// CodeOf returns the code of err, or empty if err is not a GazError.
func CodeOf(err error) string {
	var ge *GazError
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}
