// Package errors provides standardized error handling for the venue
// discovery workers.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Sentinel Errors
// ==========================

// Sentinels used with errors.Is across the discovery pipeline.
var (
	// ErrPlaceNotFound means the geocoder returned no match. Fatal to the request.
	ErrPlaceNotFound = errors.New("PLACE_NOT_FOUND")
	// ErrClientRejected means an upstream answered 4xx (other than 429). Not retried.
	ErrClientRejected = errors.New("CLIENT_REJECTED")
	// ErrUpstreamUnavailable means retries were exhausted against an upstream.
	ErrUpstreamUnavailable = errors.New("UPSTREAM_UNAVAILABLE")
	// ErrPersistence means a repository operation failed. Computed results survive it.
	ErrPersistence = errors.New("PERSISTENCE_FAILED")
)

// ==========================
// 2. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodePlaceNotFound       ErrorCode = "PLACE_NOT_FOUND"
	ErrCodeClientRejected      ErrorCode = "CLIENT_REJECTED"
	ErrCodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	ErrCodePersistenceFailed   ErrorCode = "PERSISTENCE_FAILED"
	ErrCodeInvalidSearchInput  ErrorCode = "INVALID_SEARCH_INPUT"
	ErrCodeParseError          ErrorCode = "PARSE_ERROR"
	ErrCodeInternalError       ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap ties a StandardError back to the pipeline sentinel for its code, so
// errors.Is matches regardless of whether a call site built a StandardError
// or wrapped the sentinel with fmt.Errorf.
func (e *StandardError) Unwrap() error {
	switch e.Code {
	case ErrCodePlaceNotFound:
		return ErrPlaceNotFound
	case ErrCodeClientRejected:
		return ErrClientRejected
	case ErrCodeUpstreamUnavailable:
		return ErrUpstreamUnavailable
	case ErrCodePersistenceFailed:
		return ErrPersistence
	default:
		return nil
	}
}

// ==========================
// 3. Error Constructors
// ==========================

// NewPlaceNotFoundError creates a non-retryable geocoding miss.
func NewPlaceNotFoundError(placeQuery string) *StandardError {
	return &StandardError{
		Code:      ErrCodePlaceNotFound,
		Message:   "No geocoding match for place query",
		Details:   fmt.Sprintf("placeQuery: %s", placeQuery),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewClientRejectedError creates a non-retryable upstream 4xx error.
func NewClientRejectedError(endpoint string, statusCode int) *StandardError {
	return &StandardError{
		Code:      ErrCodeClientRejected,
		Message:   "Upstream rejected the request",
		Details:   fmt.Sprintf("endpoint: %s, status: %d", endpoint, statusCode),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamUnavailableError creates a retryable exhausted-retries error.
func NewUpstreamUnavailableError(endpoint string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamUnavailable,
		Message:   "Upstream unavailable after retries",
		Details:   fmt.Sprintf("endpoint: %s, error: %v", endpoint, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPersistenceError creates a retryable repository write error.
func NewPersistenceError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePersistenceFailed,
		Message:   "Suggestion persistence failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidSearchInputError creates a non-retryable input validation error.
func NewInvalidSearchInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidSearchInput,
		Message:   "Search request failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewParseError creates a non-retryable job-variable decoding error.
func NewParseError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeParseError,
		Message:   "Job variables could not be decoded",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError wraps a failure no other code classifies.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternalError,
		Message:   "Internal error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	if e.ErrorVariables != nil {
		for k, v := range e.ErrorVariables {
			vars[k] = v
		}
	}

	return vars
}

// ConvertToBPMNError maps a StandardError onto the workflow error shape.
func ConvertToBPMNError(err *StandardError) *BPMNError {
	return &BPMNError{
		Code:      string(err.Code),
		Message:   err.Message,
		Details:   err.Details,
		Retryable: err.Retryable,
		Retries:   GetRetryCount(err.Code),
	}
}

// GetRetryCount returns the workflow retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeUpstreamUnavailable, ErrCodePersistenceFailed:
		return 3
	default:
		return 0
	}
}
