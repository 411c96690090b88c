// Package domain defines the core domain models for notekeep.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain error with a structured error code.
// Codes have the form NK-<AREA>-<NNNN>.
type DomainError struct {
	Code    string // Error code (e.g., "NK-AUTH-4010")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
// Two DomainErrors are equal when their codes match.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Authentication Errors (AUTH)
// ============================================================================

var (
	// ErrUnauthorized is the terminal authorization failure surfaced to callers
	// once the refresh-and-retry protocol cannot recover a request.
	ErrUnauthorized = NewDomainError("NK-AUTH-4010", "unauthorized")

	// ErrRefreshFailed indicates the refresh call itself failed.
	ErrRefreshFailed = NewDomainError("NK-AUTH-4011", "credential refresh failed")

	// ErrRefreshNoCredential indicates the refresh call succeeded at the
	// transport level but its body did not carry a token.
	ErrRefreshNoCredential = NewDomainError("NK-AUTH-4012", "refresh response carried no credential")

	// ErrNotAuthenticated indicates the operation requires a logged-in session.
	ErrNotAuthenticated = NewDomainError("NK-AUTH-4013", "not authenticated")

	// ErrForbidden indicates the identity's role is not allowed.
	ErrForbidden = NewDomainError("NK-AUTH-4030", "forbidden")
)

// ============================================================================
// Session Errors (SESS)
// ============================================================================

var (
	// ErrSessionInvalid indicates a login was attempted with an empty
	// credential or an identity without an id.
	ErrSessionInvalid = NewDomainError("NK-SESS-4001", "invalid session data")

	// ErrStorage indicates the persisted session backend failed.
	ErrStorage = NewDomainError("NK-SESS-5001", "session storage error")
)

// ============================================================================
// API Errors (API)
// ============================================================================

var (
	// ErrNoteNotFound indicates the requested note does not exist.
	ErrNoteNotFound = NewDomainError("NK-API-4040", "note not found")

	// ErrMalformedResponse indicates the API returned a body we could not decode.
	ErrMalformedResponse = NewDomainError("NK-API-5020", "malformed api response")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrValidation indicates client-side input validation failed.
	ErrValidation = NewDomainError("NK-ARG-1001", "validation failed")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("NK-ARG-1002", "missing required argument")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternal indicates an unexpected internal failure.
	ErrInternal = NewDomainError("NK-SYS-5000", "internal error")
)
