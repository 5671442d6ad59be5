package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound          = errors.New("resource not found")
	ErrReplicateNotFound = fmt.Errorf("%w: replicate", ErrNotFound)
	ErrSummaryNotFound   = fmt.Errorf("%w: power summary", ErrNotFound)
	ErrFamilyNotFound    = fmt.Errorf("%w: test family", ErrNotFound)

	// Sampling errors
	ErrInvalidCount         = errors.New("subsample count exceeds group size")
	ErrInvalidSchedule      = errors.New("invalid counts schedule")
	ErrEmptyPool            = errors.New("sample pool has no observations")
	ErrOverlappingGroups    = errors.New("sample pool groups share identifiers")
	ErrBootstrapUnsupported = errors.New("bootstrap sampling not supported for this pool")

	// Test execution errors
	ErrDegenerateSample = errors.New("sample is degenerate for this test")
	ErrZeroVariance     = errors.New("sample has zero variance")
	ErrMatrixShape      = errors.New("distance matrix is not square symmetric")

	// Determinism errors
	ErrSeedMismatch = errors.New("seed mismatch")
)

// NewNotFoundError builds a not-found error with resource context
func NewNotFoundError(resource string, key string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, resource, key)
}

// NewValidationError builds a field-level validation error
func NewValidationError(field string, reason string) error {
	return fmt.Errorf("validation failed for %s: %s", field, reason)
}

// NewInvalidCountError reports a draw request larger than its source group
func NewInvalidCountError(count, groupSize int, group string) error {
	return fmt.Errorf("%w: requested %d from group %q of size %d", ErrInvalidCount, count, group, groupSize)
}
