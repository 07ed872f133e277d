// Package store defines the shared error taxonomy for the davfs storage
// backend.
//
// All storage components (filesystem adapter, lock table, property store,
// facade) report business-logic failures as *StoreError so the protocol
// engine can translate them into wire responses without inspecting error
// strings. Infrastructure failures (disk errors, database faults) are
// wrapped with ErrInternal.
package store

import (
	"errors"
	"net/http"
)

// StoreError represents a domain error from storage operations.
//
// These are business logic errors (resource not found, quota exceeded, etc.)
// as opposed to infrastructure errors (disk failure, database corruption).
//
// The protocol engine translates StoreError codes to HTTP status codes via
// HTTPStatus.
type StoreError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the user-relative URI related to the error (if applicable)
	Path string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// ErrorCode represents the category of a storage error.
type ErrorCode int

const (
	// ErrNotFound indicates the resource is absent where presence is required
	ErrNotFound ErrorCode = iota

	// ErrConflict indicates a directory-vs-file mismatch, a missing parent
	// collection, or an existing-name collision on create
	ErrConflict

	// ErrQuotaExceeded indicates a write would exceed the user's byte limit
	ErrQuotaExceeded

	// ErrBadRequest indicates a malformed property-update payload
	ErrBadRequest

	// ErrMethodNotAllowed indicates create-collection onto an existing path
	ErrMethodNotAllowed

	// ErrInternal indicates an infrastructure failure (disk, database)
	ErrInternal
)

// HTTPStatus maps an error code to its conventional HTTP status code.
//
// The mapping follows WebDAV conventions: quota failures surface as 403
// (RFC 4918 leaves insufficient-storage semantics to the server; the
// original service reports 403 for over-quota writes).
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	case ErrQuotaExceeded:
		return http.StatusForbidden
	case ErrBadRequest:
		return http.StatusBadRequest
	case ErrMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// NotFound builds a StoreError for an absent resource.
func NotFound(path string) *StoreError {
	return &StoreError{Code: ErrNotFound, Message: "resource not found", Path: path}
}

// Conflict builds a StoreError for a structural conflict.
func Conflict(message, path string) *StoreError {
	return &StoreError{Code: ErrConflict, Message: message, Path: path}
}

// QuotaExceeded builds a StoreError for an over-quota write.
func QuotaExceeded(path string) *StoreError {
	return &StoreError{Code: ErrQuotaExceeded, Message: "storage quota exceeded", Path: path}
}

// BadRequest builds a StoreError for a malformed payload.
func BadRequest(message string) *StoreError {
	return &StoreError{Code: ErrBadRequest, Message: message}
}

// MethodNotAllowed builds a StoreError for create-collection onto an
// existing path.
func MethodNotAllowed(path string) *StoreError {
	return &StoreError{Code: ErrMethodNotAllowed, Message: "resource already exists", Path: path}
}

// Internal wraps an infrastructure failure.
func Internal(message string) *StoreError {
	return &StoreError{Code: ErrInternal, Message: message}
}

// CodeOf extracts the ErrorCode from err, or ErrInternal when err is not a
// *StoreError.
func CodeOf(err error) ErrorCode {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrInternal
}

// IsCode reports whether err is a *StoreError carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Code == code
}
