package domain

import (
	"errors"
	"fmt"
)

// Error types for consistent error handling across the BFA.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrNetwork indicates the backend could not be reached at all.
type ErrNetwork struct {
	Service string
	Err     error
}

func (e *ErrNetwork) Error() string {
	return fmt.Sprintf("network error [%s]: %v", e.Service, e.Err)
}

func (e *ErrNetwork) Unwrap() error {
	return e.Err
}

// ErrAPI is a non-2xx backend response. Message carries the backend's own
// message when it sent one.
type ErrAPI struct {
	Status  int
	Message string
}

func (e *ErrAPI) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend returned status %d", e.Status)
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUnauthorized indicates a missing, invalid or expired session.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrForbidden indicates the user lacks permission for the operation.
// Message carries the backend's own reason when it sent one.
type ErrForbidden struct {
	Message string
}

func (e *ErrForbidden) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "forbidden"
}

// ErrStoreUnavailable means the session store could not be read at all.
// The stored session may still be valid; it must not be discarded.
type ErrStoreUnavailable struct {
	Store string
	Err   error
}

func (e *ErrStoreUnavailable) Error() string {
	return fmt.Sprintf("session store %s unavailable: %v", e.Store, e.Err)
}

func (e *ErrStoreUnavailable) Unwrap() error {
	return e.Err
}

// ErrSessionNotFound means the browser holds a session id the store no
// longer knows, typically after expiry or eviction.
var ErrSessionNotFound = errors.New("session not found")

// ErrLogin is a failed login attempt. Message is what the login form shows.
type ErrLogin struct {
	Message string
}

func (e *ErrLogin) Error() string {
	return e.Message
}

// ErrLocationUnavailable indicates the device denied, timed out or lacks
// geolocation.
type ErrLocationUnavailable struct {
	Unsupported bool
	Reason      string
}

func (e *ErrLocationUnavailable) Error() string {
	if e.Unsupported {
		return "La geolocalización no está soportada por tu navegador."
	}
	return "No se pudo obtener la ubicación."
}

// ErrNotification is a failed client notification after the report was
// already persisted.
type ErrNotification struct {
	Err error
}

func (e *ErrNotification) Error() string {
	return fmt.Sprintf("notification failed: %v", e.Err)
}

func (e *ErrNotification) Unwrap() error {
	return e.Err
}
