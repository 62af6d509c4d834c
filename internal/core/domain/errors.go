package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Taxonomy roots. Use errors.Is against these to classify any error the
// services return.
var (
	ErrValidation         = errors.New("validation error")
	ErrStateConflict      = errors.New("state conflict")
	ErrExternalDependency = errors.New("external dependency error")
	ErrInvariantViolation = errors.New("invariant violation")
)

var (
	ErrEventNotFound      = errors.New("event not found")
	ErrTicketTypeNotFound = errors.New("ticket type not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrTicketNotFound     = errors.New("ticket not found")

	ErrEmptyCart             = errors.New("cart is empty")
	ErrInvalidQuantity       = errors.New("quantity must be positive")
	ErrQuantityExceedsMax    = errors.New("quantity exceeds per-order maximum")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrTicketTypeNotOnSale   = errors.New("ticket type is not on sale")
	ErrMixedCurrency         = errors.New("cart mixes currencies")
	ErrInvalidEvent          = errors.New("invalid event")
	ErrInvalidTicketType     = errors.New("invalid ticket type")

	ErrOrderNotPending        = errors.New("order is not pending")
	ErrOrderAlreadyPaid       = errors.New("order already paid")
	ErrOrderNotPaid           = errors.New("order is not paid")
	ErrOrderCancelled         = errors.New("order is cancelled")
	ErrInvalidEventTransition = errors.New("invalid event status transition")
	ErrTicketTypeSold         = errors.New("ticket type already has sales")

	ErrTicketAlreadyUsed = errors.New("ticket already used")
	ErrTicketCancelled   = errors.New("ticket cancelled")
	ErrTicketRefunded    = errors.New("ticket refunded")
	ErrEventMismatch     = errors.New("ticket belongs to a different event")

	ErrPaymentNotConfirmed = errors.New("payment not confirmed")
	// ErrPaymentSessionNotFound is the provider's definitive answer that a
	// session does not exist. It is not retryable.
	ErrPaymentSessionNotFound = errors.New("payment session not found")

	// ErrStatusChanged is returned by storage when a conditional transition
	// found the record in a status outside the expected set.
	ErrStatusChanged = errors.New("status changed concurrently")
	// ErrDuplicateNumber is returned by storage when a generated order or
	// ticket number collides with an existing one.
	ErrDuplicateNumber = errors.New("duplicate number")
)

// ValidationError is a client-correctable problem with a request.
type ValidationError struct {
	LineItem     int
	TicketTypeID string
	Reason       string
	Err          error
}

func (e *ValidationError) Error() string {
	if e.TicketTypeID != "" {
		return fmt.Sprintf("line item %d (ticket type %s): %s", e.LineItem, e.TicketTypeID, e.Reason)
	}
	return e.Reason
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func NewValidationError(reason string, err error) *ValidationError {
	return &ValidationError{LineItem: -1, Reason: reason, Err: err}
}

// StateConflictError means the entity is in the wrong state for the operation.
// Current carries the state the caller should act on.
type StateConflictError struct {
	Entity  string
	ID      uuid.UUID
	Current string
	Err     error

	UsedAt *time.Time
	UsedBy string
}

func (e *StateConflictError) Error() string {
	msg := fmt.Sprintf("%s %s: %v (current status %s)", e.Entity, e.ID, e.Err, e.Current)
	if e.UsedAt != nil {
		msg += fmt.Sprintf(", used at %s by %s", e.UsedAt.Format(time.RFC3339), e.UsedBy)
	}
	return msg
}

func (e *StateConflictError) Unwrap() error { return e.Err }

func (e *StateConflictError) Is(target error) bool { return target == ErrStateConflict }

func OrderConflict(o *Order, kind error) *StateConflictError {
	return &StateConflictError{Entity: "order", ID: o.ID, Current: string(o.Status), Err: kind}
}

// ExternalDependencyError wraps a failed or timed-out call to a collaborator.
// It is always retryable and never implies a state change happened.
type ExternalDependencyError struct {
	Op  string
	Err error
}

func (e *ExternalDependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ExternalDependencyError) Unwrap() error { return e.Err }

func (e *ExternalDependencyError) Is(target error) bool { return target == ErrExternalDependency }
