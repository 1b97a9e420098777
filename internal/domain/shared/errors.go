// Package shared contains common domain types, errors, and events that are
// used across all domain packages. This package has zero external dependencies.
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
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrAlreadyProcessed = errors.New("already processed")

	// Business outcomes
	ErrInsufficientTokens = errors.New("insufficient streak freeze tokens")

	// Concurrency errors
	ErrOptimisticLock = errors.New("optimistic lock failure")
	ErrConflict       = errors.New("write conflict")

	// Infrastructure errors
	ErrStoreUnavailable = errors.New("document store unavailable")
	ErrTimeout          = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "progression", "streak", "badge"
	Op      string // Operation that failed, e.g., "ApplyEvent", "UseFreeze"
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

// Profile domain errors
var (
	ErrProfileNotFound      = NewDomainError("profile", "Find", ErrNotFound, "gamification profile not found")
	ErrProfileAlreadyExists = NewDomainError("profile", "Create", ErrAlreadyExists, "gamification profile already exists")
	ErrInvalidUserID        = NewDomainError("profile", "Validate", ErrInvalidID, "invalid user ID")
	ErrLevelMismatch        = NewDomainError("profile", "Validate", ErrInvalidState, "cached level does not match XP")
)

// Progression domain errors
var (
	ErrNegativeXP      = NewDomainError("progression", "Validate", ErrNegativeValue, "XP cannot be negative")
	ErrInvalidAccuracy = NewDomainError("progression", "Validate", ErrValueOutOfRange, "accuracy must be between 0 and 1")
	ErrInvalidDuration = NewDomainError("progression", "Validate", ErrNegativeValue, "duration cannot be negative")
)

// Streak domain errors
var (
	ErrNoFreezeTokens  = NewDomainError("streak", "UseFreeze", ErrInsufficientTokens, "no streak freeze tokens available")
	ErrInvalidTimezone = NewDomainError("streak", "Validate", ErrInvalidInput, "invalid IANA timezone")
	ErrNegativeStreak  = NewDomainError("streak", "Validate", ErrNegativeValue, "streak count cannot be negative")
)

// Badge domain errors
var (
	ErrBadgeNotFound     = NewDomainError("badge", "Find", ErrNotFound, "badge definition not found")
	ErrUnknownEventType  = NewDomainError("badge", "Evaluate", ErrValidation, "unknown event type")
	ErrEmptyCatalog      = NewDomainError("badge", "LoadCatalog", ErrNotFound, "badge catalog is empty")
	ErrInvalidDefinition = NewDomainError("badge", "Validate", ErrInvalidInput, "invalid badge definition")
)

// Coordinator errors
var (
	ErrConflictRetriesExhausted = NewDomainError("coordinator", "ApplyEvent", ErrConflict, "version conflict persisted after retries")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsConflict checks if the error is a concurrency conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrOptimisticLock) || errors.Is(err, ErrConflict)
}

// IsInsufficientTokens checks for the expected freeze-token business outcome.
func IsInsufficientTokens(err error) bool {
	return errors.Is(err, ErrInsufficientTokens)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrOptimisticLock) ||
		errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, ErrTimeout)
}
