package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure so the transport layer can map it to a
// stable status code. The core produces a distinguishable kind per failure;
// it never retries internally.
type ErrorKind string

const (
	KindNotFound   ErrorKind = "NOT_FOUND"
	KindValidation ErrorKind = "VALIDATION_FAILED"
	KindConflict   ErrorKind = "CONFLICT"
	KindStoreError ErrorKind = "STORE_ERROR"
)

// AppError carries an error kind alongside the underlying cause.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a NOT_FOUND error.
func NotFound(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a VALIDATION_FAILED error wrapping its cause.
func Validation(err error, format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindValidation, Message: fmt.Sprintf(format, args...), Err: err}
}

// Conflict creates a CONFLICT error wrapping its cause.
func Conflict(err error, format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindConflict, Message: fmt.Sprintf(format, args...), Err: err}
}

// StoreError wraps a persistence-layer failure.
func StoreError(err error, format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindStoreError, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the error kind from err, defaulting to STORE_ERROR for
// errors the core did not classify.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindStoreError
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}
