// Package errors defines the structured error types used across the keyforge
// service. Every error carries a stable code from pkg/constants, an HTTP status
// for the transport layer, and an optional cause chain.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/keyforge/keyforge/pkg/constants"
)

// AppError is the structured application error. It distinguishes "could not
// evaluate" conditions (malformed input, backend unavailability) from negative
// validation outcomes, which are represented as boolean results, not errors.
type AppError struct {
	code       constants.ErrorCode
	httpStatus int
	message    string
	cause      error
	metadata   map[string]interface{}
	retryable  bool
}

// New creates a new AppError with the given code, HTTP status, and message.
func New(code constants.ErrorCode, httpStatus int, message string) *AppError {
	return &AppError{
		code:       code,
		httpStatus: httpStatus,
		message:    message,
	}
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the stable error code.
func (e *AppError) Code() constants.ErrorCode {
	return e.code
}

// HTTPStatus returns the HTTP status code for the transport layer.
func (e *AppError) HTTPStatus() int {
	return e.httpStatus
}

// Unwrap returns the underlying cause, supporting errors.Is/As chains.
func (e *AppError) Unwrap() error {
	return e.cause
}

// Retryable reports whether the caller may retry the operation. Only errors
// originating from an external collaborator (secret store, cache backend)
// are marked retryable; the service never retries on the caller's behalf.
func (e *AppError) Retryable() bool {
	return e.retryable
}

// WithCause returns a copy of the error with the given cause attached.
func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.cause = cause
	return &clone
}

// WithMetadata returns a copy of the error with an extra context pair attached.
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	clone := *e
	clone.metadata = make(map[string]interface{}, len(e.metadata)+1)
	for k, v := range e.metadata {
		clone.metadata[k] = v
	}
	clone.metadata[key] = value
	return &clone
}

// Metadata returns the attached context pairs. May be nil.
func (e *AppError) Metadata() map[string]interface{} {
	return e.metadata
}

// ================================================================================
// Predefined Constructors
// ================================================================================

// ErrInvalidInput reports a malformed request. It is never a validation verdict.
func ErrInvalidInput(message string) *AppError {
	return New(constants.ErrCodeInvalidInput, http.StatusBadRequest, message)
}

// ErrKeyNotFound reports that no key record exists for the given identifier.
func ErrKeyNotFound(keyID string) *AppError {
	return New(constants.ErrCodeKeyNotFound, http.StatusNotFound,
		fmt.Sprintf("key not found: %s", keyID)).WithMetadata("key_id", keyID)
}

// ErrDuplicateKey reports an attempt to create a key whose identifier already
// exists. Key identifiers are never reused, revoked or not.
func ErrDuplicateKey(keyID string) *AppError {
	return New(constants.ErrCodeDuplicateKey, http.StatusConflict,
		fmt.Sprintf("key already exists: %s", keyID)).WithMetadata("key_id", keyID)
}

// ErrInvalidSignature is the uniform strict-mode validation failure. It carries
// no detail about which check failed, so callers cannot be used as an oracle
// to distinguish window expiry from signature mismatch or revocation.
func ErrInvalidSignature() *AppError {
	return New(constants.ErrCodeInvalidSignature, http.StatusUnauthorized,
		"signature validation failed")
}

// ErrSecretResolution reports a failure while resolving a secret from the
// configured provider. Retryable; retry policy belongs to the caller.
func ErrSecretResolution(cause error) *AppError {
	e := New(constants.ErrCodeSecretResolution, http.StatusServiceUnavailable,
		"failed to resolve secret").WithCause(cause)
	e.retryable = true
	return e
}

// ErrCacheFailure reports a cache backend failure. Treated as non-fatal by the
// validator, which degrades to recomputing the signature.
func ErrCacheFailure(cause error) *AppError {
	e := New(constants.ErrCodeCacheFailure, http.StatusServiceUnavailable,
		"validation cache failure").WithCause(cause)
	e.retryable = true
	return e
}

// ErrUnauthorized reports a rejected admin credential.
func ErrUnauthorized(message string) *AppError {
	return New(constants.ErrCodeUnauthorized, http.StatusUnauthorized, message)
}

// ErrRateLimited reports that the caller exceeded the configured request rate.
func ErrRateLimited() *AppError {
	return New(constants.ErrCodeRateLimited, http.StatusTooManyRequests,
		"rate limit exceeded")
}

// ErrInternal reports an unexpected internal condition.
func ErrInternal(message string) *AppError {
	return New(constants.ErrCodeInternal, http.StatusInternalServerError, message)
}

// ================================================================================
// Inspection Helpers
// ================================================================================

// CodeOf extracts the error code from err, walking the cause chain.
// Non-AppError values map to ErrCodeInternal.
func CodeOf(err error) constants.ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.code
	}
	return constants.ErrCodeInternal
}

// IsCode reports whether err (or any error in its chain) carries the code.
func IsCode(err error, code constants.ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// HTTPStatusOf extracts the HTTP status from err, defaulting to 500.
func HTTPStatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.httpStatus
	}
	return http.StatusInternalServerError
}
