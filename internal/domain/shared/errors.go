// Package shared contains common domain types, errors and events used across
// all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrLockNotAcquired        = errors.New("lock not acquired")

	// Store errors
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrPartialFailure   = errors.New("partial failure")
	ErrTimeout          = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "streak", "practice", "achievement"
	Op      string // Operation that failed, e.g., "create_activity", "save_profile"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// NewValidationError builds a DomainError of kind ErrValidation.
func NewValidationError(domain, op, message string) *DomainError {
	return NewDomainError(domain, op, ErrValidation, message)
}

// NewStoreUnavailableError wraps a storage failure. Op names the failing step.
func NewStoreUnavailableError(domain, op string, err error) *DomainError {
	return WrapError(domain, op, ErrStoreUnavailable, "store unavailable", err)
}

// Streak domain errors
var (
	ErrProfileNotFound      = NewDomainError("streak", "find_profile", ErrNotFound, "streak profile not found")
	ErrProfileAlreadyExists = NewDomainError("streak", "create_profile", ErrAlreadyExists, "streak profile already exists")
	ErrProfileVersionStale  = NewDomainError("streak", "save_profile", ErrConcurrentModification, "streak profile was modified concurrently")
	ErrInvalidWeeklyGoal    = NewDomainError("streak", "validate", ErrValueOutOfRange, "weekly goal must be between 1 and 7")
)

// Practice domain errors
var (
	ErrActivityNotFound    = NewDomainError("practice", "find_activity", ErrNotFound, "activity not found")
	ErrNegativeDuration    = NewDomainError("practice", "validate", ErrNegativeValue, "duration cannot be negative")
	ErrEmptyUserID         = NewDomainError("practice", "validate", ErrEmptyValue, "user id is required")
	ErrMissingActivityDate = NewDomainError("practice", "validate", ErrEmptyValue, "activity date is required")
)

// Achievement domain errors
var (
	ErrAchievementNotFound = NewDomainError("achievement", "find", ErrNotFound, "achievement not found")
	ErrInvalidCatalog      = NewDomainError("achievement", "load_catalog", ErrInvalidInput, "invalid achievement catalog")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsStoreUnavailable checks if a storage backend could not be reached.
func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrTimeout)
}

// IsPartialFailure checks if an operation committed some but not all of its writes.
func IsPartialFailure(err error) bool {
	return errors.Is(err, ErrPartialFailure)
}

// IsConflict checks if the error is an optimistic concurrency conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsRetryable checks if the operation can be retried by the caller.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrLockNotAcquired)
}
