// Package errors defines the coded error taxonomy shared by the request
// pipeline. Every failure crossing the HTTP boundary carries one of these
// codes so handlers can map it to a status without inspecting causes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a specific failure class in the chat pipeline.
type ErrorCode string

const (
	// ErrCodeEmptyRequest indicates a chat request without text, image or document.
	ErrCodeEmptyRequest ErrorCode = "EMPTY_REQUEST"
	// ErrCodeForbiddenMedia indicates a media request from a non-pro plan.
	ErrCodeForbiddenMedia ErrorCode = "FORBIDDEN_MEDIA"
	// ErrCodeQuotaExceeded indicates the free-plan message limit was reached.
	ErrCodeQuotaExceeded ErrorCode = "QUOTA_EXCEEDED"
	// ErrCodeExtractionError indicates document text extraction failed.
	ErrCodeExtractionError ErrorCode = "EXTRACTION_ERROR"
	// ErrCodeGenerationFailed indicates the generation backend failed.
	ErrCodeGenerationFailed ErrorCode = "GENERATION_FAILED"
	// ErrCodeStoreUnavailable indicates the backing store failed.
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// ErrCodeInvalidPaymentSignature indicates payment signature verification failed.
	ErrCodeInvalidPaymentSignature ErrorCode = "INVALID_PAYMENT_SIGNATURE"
)

// AppError is a structured error carrying a pipeline error code.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps the error code to the HTTP status returned to clients.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeEmptyRequest, ErrCodeInvalidPaymentSignature:
		return http.StatusBadRequest
	case ErrCodeForbiddenMedia, ErrCodeQuotaExceeded:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// New creates an AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap creates an AppError with the given code, message and cause.
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the error code from err, or "" if err carries none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// AsAppError extracts an AppError from err, or nil if err carries no code.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}
