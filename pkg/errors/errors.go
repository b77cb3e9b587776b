// Package errors provides standardized error types for the parity harness.
package errors

import (
	"errors"
	"fmt"
)

// Error codes for the harness failure taxonomy.
const (
	CodeExecutionFailed        = "EXECUTION_FAILED"
	CodeResultMismatch         = "RESULT_MISMATCH"
	CodeFallbackViolation      = "FALLBACK_VIOLATION"
	CodeUnexpectedAcceleration = "UNEXPECTED_ACCELERATION"
	CodeInvalidScenario        = "INVALID_SCENARIO"
	CodeFixtureFailed          = "FIXTURE_FAILED"
	CodePlanCaptureFailed      = "PLAN_CAPTURE_FAILED"
	CodeUnsupportedType        = "UNSUPPORTED_TYPE"
	CodeInternal               = "INTERNAL_ERROR"
)

// HarnessError represents a harness error with code, message, and optional details.
type HarnessError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface.
func (e *HarnessError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *HarnessError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison by code.
func (e *HarnessError) Is(target error) bool {
	t, ok := target.(*HarnessError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail adds a single detail to the error.
func (e *HarnessError) WithDetail(key string, value interface{}) *HarnessError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Common errors
var (
	ErrResultMismatch         = &HarnessError{Code: CodeResultMismatch, Message: "result sets diverged"}
	ErrFallbackViolation      = &HarnessError{Code: CodeFallbackViolation, Message: "unexpected reference-path operator"}
	ErrUnexpectedAcceleration = &HarnessError{Code: CodeUnexpectedAcceleration, Message: "operator ran accelerated unexpectedly"}
	ErrInvalidScenario        = &HarnessError{Code: CodeInvalidScenario, Message: "invalid scenario"}
	ErrFixtureFailed          = &HarnessError{Code: CodeFixtureFailed, Message: "fixture operation failed"}
)

// New creates a new HarnessError with the given code and message.
func New(code, message string) *HarnessError {
	return &HarnessError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new HarnessError with a formatted message.
func Newf(code, format string, args ...interface{}) *HarnessError {
	return &HarnessError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with a HarnessError.
func Wrap(err error, code, message string) *HarnessError {
	if err == nil {
		return nil
	}
	return &HarnessError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code, format string, args ...interface{}) *HarnessError {
	if err == nil {
		return nil
	}
	return &HarnessError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// GetCode extracts the error code from an error.
func GetCode(err error) string {
	var harnessErr *HarnessError
	if errors.As(err, &harnessErr) {
		return harnessErr.Code
	}
	return CodeInternal
}

// IsExecutionFailure checks whether an error originated in an engine execution.
func IsExecutionFailure(err error) bool {
	return GetCode(err) == CodeExecutionFailed
}

// IsMismatch checks whether an error is a comparator divergence.
func IsMismatch(err error) bool {
	return GetCode(err) == CodeResultMismatch
}
