package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrProductNotFound = errors.New("product not found")
	ErrOrderNotFound   = errors.New("order not found")

	// ErrConflict is returned when a delete would orphan dependent entities.
	ErrConflict = errors.New("dependent entities exist")
)

// ValidationError reports a constraint violation on a request payload.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// PartialFailureError reports a multi-entity write that partially committed:
// the order exists but some of its items do not. Persisted and Failed identify
// which parts succeeded so the caller can compensate or retry the remainder.
type PartialFailureError struct {
	OrderID   uuid.UUID
	Persisted []uuid.UUID // item IDs that were written
	Failed    []uuid.UUID // product IDs whose items were not written
	Err       error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("order %s partially created: %d items persisted, %d failed: %v",
		e.OrderID, len(e.Persisted), len(e.Failed), e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }
