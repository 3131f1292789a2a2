// Package errors defines the error taxonomy surfaced by the HTTP API.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode is a stable, machine readable error identifier.
type ErrorCode string

const (
	CodeUnauthorized ErrorCode = "unauthorized"
	CodeForbidden    ErrorCode = "forbidden"
	CodeNotFound     ErrorCode = "not_found"
	CodeValidation   ErrorCode = "validation_error"
	CodeConflict     ErrorCode = "conflict"
	CodeBadRequest   ErrorCode = "bad_request"
	CodeRateLimited  ErrorCode = "rate_limited"
	CodeIntegrity    ErrorCode = "integrity_error"
	CodeInternal     ErrorCode = "internal_error"
)

// Issue is a single field-level validation failure.
type Issue struct {
	Path    []string `json:"path"`
	Code    string   `json:"code"`
	Message string   `json:"message"`
}

// ServiceError carries everything needed to render a failure to a client.
type ServiceError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Issues     []Issue
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// WithIssues returns a copy of e with validation issues attached.
func (e *ServiceError) WithIssues(issues []Issue) *ServiceError {
	cp := *e
	cp.Issues = issues
	return &cp
}

func newError(code ErrorCode, status int, message string, err error) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// Unauthorized reports a missing or invalid session.
func Unauthorized(message string) *ServiceError {
	if message == "" {
		message = "Authentication required"
	}
	return newError(CodeUnauthorized, http.StatusUnauthorized, message, nil)
}

// Forbidden reports an authenticated caller acting on a resource it does not own.
func Forbidden(message string) *ServiceError {
	return newError(CodeForbidden, http.StatusForbidden, message, nil)
}

// NotFound reports an identifier that does not resolve.
func NotFound(message string) *ServiceError {
	return newError(CodeNotFound, http.StatusNotFound, message, nil)
}

// Validation reports a request body that failed schema checks.
func Validation(message string, issues []Issue) *ServiceError {
	e := newError(CodeValidation, http.StatusBadRequest, message, nil)
	e.Issues = issues
	return e
}

// Conflict reports a duplicate unique field. The API renders it as 400.
func Conflict(message string) *ServiceError {
	return newError(CodeConflict, http.StatusBadRequest, message, nil)
}

// BadRequest reports a malformed request that is not a schema failure.
func BadRequest(message string) *ServiceError {
	return newError(CodeBadRequest, http.StatusBadRequest, message, nil)
}

// RateLimited reports a caller exceeding its request budget.
func RateLimited(message string) *ServiceError {
	return newError(CodeRateLimited, http.StatusTooManyRequests, message, nil)
}

// Integrity reports a broken reference between stored rows.
func Integrity(message string) *ServiceError {
	return newError(CodeIntegrity, http.StatusInternalServerError, message, nil)
}

// Internal wraps an unexpected failure. The message is safe to show clients.
func Internal(message string, err error) *ServiceError {
	return newError(CodeInternal, http.StatusInternalServerError, message, err)
}

// GetServiceError returns the first ServiceError in err's chain, or nil.
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if stderrors.As(err, &se) {
		return se
	}
	return nil
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	se := GetServiceError(err)
	return se != nil && se.Code == code
}
