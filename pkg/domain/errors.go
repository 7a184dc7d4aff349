package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error with a code and message
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Error codes
const (
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeForbidden  = "FORBIDDEN"
	ErrCodeConflict   = "CONFLICT"
	ErrCodeBadRequest = "BAD_REQUEST"
	ErrCodeUpstream   = "UPSTREAM_ERROR"
	ErrCodeInternal   = "INTERNAL_ERROR"
)

// Error constructors

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) error {
	return &DomainError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewValidationError creates a new validation error
func NewValidationError(msg string) error {
	return &DomainError{
		Code:    ErrCodeValidation,
		Message: msg,
	}
}

// NewForbiddenError creates a new permission denied error
func NewForbiddenError(msg string) error {
	if msg == "" {
		msg = "Permission denied"
	}
	return &DomainError{
		Code:    ErrCodeForbidden,
		Message: msg,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(msg string) error {
	return &DomainError{
		Code:    ErrCodeConflict,
		Message: msg,
	}
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(msg string) error {
	return &DomainError{
		Code:    ErrCodeBadRequest,
		Message: msg,
	}
}

// NewUpstreamError creates an error for a failed record store call
func NewUpstreamError(msg string, err error) error {
	return &DomainError{
		Code:    ErrCodeUpstream,
		Message: msg,
		Err:     err,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(err error) error {
	return &DomainError{
		Code:    ErrCodeInternal,
		Message: "An internal error occurred",
		Err:     err,
	}
}

// Helper functions to check error types

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return GetErrorCode(err) == ErrCodeNotFound
}

// IsValidation checks if the error is a validation error
func IsValidation(err error) bool {
	return GetErrorCode(err) == ErrCodeValidation
}

// IsForbidden checks if the error is a permission denied error
func IsForbidden(err error) bool {
	return GetErrorCode(err) == ErrCodeForbidden
}

// IsConflict checks if the error is a conflict error
func IsConflict(err error) bool {
	return GetErrorCode(err) == ErrCodeConflict
}

// IsBadRequest checks if the error is a bad request error
func IsBadRequest(err error) bool {
	return GetErrorCode(err) == ErrCodeBadRequest
}

// IsUpstream checks if the error is a record store error
func IsUpstream(err error) bool {
	return GetErrorCode(err) == ErrCodeUpstream
}

// GetErrorCode extracts the error code from a domain error
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrCodeInternal
}

// UserMessage returns the message safe to show to the acting user
func UserMessage(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return "Something went wrong. Please try again."
}
