package models

import (
	"errors"
	"fmt"
)

// Common error types used throughout azfluent.
// These errors give semantic meaning to failures regardless of which service produced them.

var (
	// ErrNotFound indicates the requested resource does not exist.
	// HTTP equivalent: 404 Not Found
	ErrNotFound = errors.New("resource not found")

	// ErrValidation indicates a builder was submitted with inputs that cannot form a valid request.
	// It is raised before any network call is made.
	ErrValidation = errors.New("validation failed")

	// ErrConflict indicates the resource already exists.
	// HTTP equivalent: 409 Conflict
	ErrConflict = errors.New("resource already exists")
)

// ErrorResponse is the ARM error envelope: {"error": {...}}.
type ErrorResponse struct {
	Error *ErrorBody `json:"error,omitempty"`
}

// ErrorBody carries the service error code and message verbatim.
type ErrorBody struct {
	// Code is the machine-readable error code (e.g. "PrincipalNotFound").
	Code string `json:"code"`

	// Message is the human-readable description returned by the service.
	Message string `json:"message"`

	// Target is the element the error refers to, when the service reports one.
	Target string `json:"target,omitempty"`

	// Details holds nested errors.
	Details []ErrorBody `json:"details,omitempty"`
}

// GraphErrorResponse is the Azure AD Graph error envelope: {"odata.error": {...}}.
type GraphErrorResponse struct {
	Error *GraphError `json:"odata.error,omitempty"`
}

// GraphError is the body of a Graph error.
type GraphError struct {
	Code    string            `json:"code"`
	Message GraphErrorMessage `json:"message"`
}

// GraphErrorMessage wraps the localized Graph error text.
type GraphErrorMessage struct {
	Lang  string `json:"lang,omitempty"`
	Value string `json:"value"`
}

// Validationf returns an error wrapping ErrValidation with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
