// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// Sentinel errors forming the engine's failure taxonomy. Services wrap
// these with %w so callers can branch with errors.Is while the glue layer
// maps them to HTTP statuses in one place.
var (
	// ErrNotFound covers unknown users, profiles, and matches.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument covers malformed ids and out-of-range paging input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDegradedDependency marks a scoring-provider failure. It is logged
	// and absorbed by the feed path, never surfaced to a caller.
	ErrDegradedDependency = errors.New("degraded dependency")

	// ErrConflict marks a write that would violate a frozen record, e.g.
	// changing a swipe decision after the pair has matched. Duplicate-insert
	// races are resolved internally by reading back the winner instead.
	ErrConflict = errors.New("conflict")

	// ErrTransientStore marks a store timeout or connectivity failure that
	// survived the retry. Surfaced to the caller as retryable.
	ErrTransientStore = errors.New("transient store error")

	// ErrInvariantViolation marks a broken store-level guarantee, e.g. a
	// pair key that resolves to no row right after a conflicting insert.
	ErrInvariantViolation = errors.New("invariant violation")
)

// NotFound wraps ErrNotFound with a descriptive message.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// InvalidArgument wraps ErrInvalidArgument with a descriptive message.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// Conflict wraps ErrConflict with a descriptive message.
func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// Transient wraps a store error so callers see a retryable failure.
func Transient(err error) error {
	return fmt.Errorf("%w: %v", ErrTransientStore, err)
}

// Invariant wraps ErrInvariantViolation. Callers must log these at the
// highest severity; they indicate a store-level bug.
func Invariant(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
}

// Map converts repo/infra errors into taxonomy errors.
// Keeps service layer clean by centralizing error classification.
func Map(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: record not found", ErrNotFound)

	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return Transient(err)

	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: duplicate key", ErrConflict)

	default:
		return err
	}
}

// HTTPStatus maps a taxonomy error onto the status code the glue layer
// returns. Internal degradation never reaches here; transient failures are
// advertised as retryable.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrTransientStore):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
