package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may repeat the whole request.
func (e *DomainError) Retryable() bool {
	return e.Code == CodeAllocationFailed || e.Code == CodeStorageError || e.Code == CodeAuthPending
}

const (
	CodeValidation       = "VALIDATION_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeConflict         = "CONFLICT"
	CodeAuthPending      = "AUTH_PENDING"
	CodeAllocationFailed = "ALLOCATION_FAILED"
	CodeStorageError     = "STORAGE_ERROR"
	CodeInternal         = "INTERNAL_ERROR"
)

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// NewUnauthorized rejects an unauthenticated caller. A non-empty redirect is
// reported to the client as the public surface to go to.
func NewUnauthorized(message, redirect string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, redirectDetails(redirect))
}

func NewForbidden(message, redirect string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, redirectDetails(redirect))
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

// NewAuthPending signals that the caller's role could not be resolved yet.
func NewAuthPending(err error) error {
	return &DomainError{
		Code:       CodeAuthPending,
		Message:    "authorization pending",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewAllocationFailed(err error) error {
	return &DomainError{
		Code:       CodeAllocationFailed,
		Message:    "ticket id allocation failed",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewStorageError(err error) error {
	return &DomainError{
		Code:       CodeStorageError,
		Message:    "storage operation failed",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsCode reports whether err carries the given DomainError code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}

func redirectDetails(redirect string) map[string]any {
	if redirect == "" {
		return nil
	}
	return map[string]any{"redirect": redirect}
}
