// Package errors provides the service's error taxonomy and its mapping onto HTTP responses.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"forecast-narrator/internal/common/validation"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeRequestValidationFailed ErrorCode = "REQUEST_VALIDATION_FAILED"

	ErrCodeExternalModelError ErrorCode = "EXTERNAL_MODEL_ERROR"
	ErrCodeModelTimeout       ErrorCode = "MODEL_TIMEOUT"

	ErrCodeResponseParseError  ErrorCode = "RESPONSE_PARSE_ERROR"
	ErrCodeResponseFormatError ErrorCode = "RESPONSE_FORMAT_ERROR"

	ErrCodeRateLimited   ErrorCode = "RATE_LIMITED"
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error. Message is safe to
// show to callers; Details and the wrapped cause are for logs only.
type StandardError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Violations []validation.Violation `json:"violations,omitempty"`
	Retryable  bool                   `json:"retryable"`
	Timestamp  time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// ==========================
// 2. Error Constructors
// ==========================

// NewRequestValidationError creates a non-retryable error for a malformed inbound body.
func NewRequestValidationError(violations []validation.Violation, cause error) *StandardError {
	return &StandardError{
		Code:       ErrCodeRequestValidationFailed,
		Message:    "Invalid request format",
		Violations: violations,
		Retryable:  false,
		Timestamp:  time.Now().UTC(),
		cause:      cause,
	}
}

// NewExternalModelError wraps a failed provider call. retryable reports whether
// the failure class (network, 429, 5xx) is worth another attempt.
func NewExternalModelError(err error, retryable bool) *StandardError {
	return &StandardError{
		Code:      ErrCodeExternalModelError,
		Message:   "Error getting response from the model provider",
		Details:   err.Error(),
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewModelTimeoutError creates a retryable provider timeout error.
func NewModelTimeoutError(timeout time.Duration, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeModelTimeout,
		Message:   "The model provider did not respond in time",
		Details:   fmt.Sprintf("call exceeded %s: %v", timeout, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewResponseParseError is returned when the model text contains no JSON at all.
func NewResponseParseError(details string, cause error) *StandardError {
	return &StandardError{
		Code:      ErrCodeResponseParseError,
		Message:   "Error parsing response",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewResponseFormatError is returned when the model emitted JSON of the wrong shape.
func NewResponseFormatError(violations []validation.Violation, cause error) *StandardError {
	return &StandardError{
		Code:       ErrCodeResponseFormatError,
		Message:    "Model response did not match the forecast format",
		Violations: violations,
		Retryable:  false,
		Timestamp:  time.Now().UTC(),
		cause:      cause,
	}
}

func NewRateLimitedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRateLimited,
		Message:   "Too many requests",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewConfigurationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfiguration,
		Message:   "Invalid configuration",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Internal server error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 3. Classification
// ==========================

// AsStandardError finds the first StandardError in err's chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr
	}
	return NewInternalError(err)
}

// CodeOf returns the error code carried by err, or "" for nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return Normalize(err).Code
}

// HTTPStatus maps an error code to the status returned to callers.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeRequestValidationFailed:
		return http.StatusBadRequest
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// IsRetryableErrorCode reports whether failures of this class may succeed on a
// later attempt. Individual errors refine this through StandardError.Retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	switch code {
	case ErrCodeExternalModelError, ErrCodeModelTimeout:
		return true
	default:
		return false
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeRequestValidationFailed:
		return "VALIDATION"
	case ErrCodeExternalModelError, ErrCodeModelTimeout:
		return "PROVIDER"
	case ErrCodeResponseParseError, ErrCodeResponseFormatError:
		return "PARSING"
	case ErrCodeRateLimited:
		return "THROTTLING"
	case ErrCodeConfiguration:
		return "CONFIG"
	default:
		return "OTHER"
	}
}
