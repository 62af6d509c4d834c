package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventStatus string

const (
	EventDraft     EventStatus = "DRAFT"
	EventPublished EventStatus = "PUBLISHED"
	EventPostponed EventStatus = "POSTPONED"
	EventCompleted EventStatus = "COMPLETED"
	EventCancelled EventStatus = "CANCELLED"
)

// eventStatusRank orders the lifecycle; transitions only move to a higher rank.
// CANCELLED has no rank and is reachable from any non-terminal status.
var eventStatusRank = map[EventStatus]int{
	EventDraft:     0,
	EventPublished: 1,
	EventPostponed: 2,
	EventCompleted: 3,
}

func (s EventStatus) Valid() bool {
	_, ok := eventStatusRank[s]
	return ok || s == EventCancelled
}

func (s EventStatus) IsTerminal() bool {
	return s == EventCompleted || s == EventCancelled
}

func (s EventStatus) CanTransitionTo(next EventStatus) bool {
	if s.IsTerminal() || !next.Valid() {
		return false
	}
	if next == EventCancelled {
		return true
	}
	return eventStatusRank[next] > eventStatusRank[s]
}

type Event struct {
	ID          uuid.UUID
	Title       string
	Description string
	Venue       string
	StartsAt    time.Time
	EndsAt      time.Time
	Capacity    int
	Status      EventStatus
	TicketTypes []TicketType
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (e *Event) IsOnSale() bool {
	return e.Status == EventPublished
}

func (e *Event) TicketType(id uuid.UUID) (*TicketType, bool) {
	for i := range e.TicketTypes {
		if e.TicketTypes[i].ID == id {
			return &e.TicketTypes[i], true
		}
	}
	return nil, false
}

// AllocatedQuantity is the sum of TotalQuantity over all ticket types.
func (e *Event) AllocatedQuantity() int {
	var n int
	for _, tt := range e.TicketTypes {
		n += tt.TotalQuantity
	}
	return n
}

type TicketType struct {
	ID                  uuid.UUID
	EventID             uuid.UUID
	Name                string
	UnitPrice           decimal.Decimal
	Currency            string
	TotalQuantity       int
	AvailableQuantity   int
	MaxQuantityPerOrder int
	SalesStart          *time.Time
	SalesEnd            *time.Time
	// HasSold flips on the first successful reservation and never flips back.
	HasSold   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t *TicketType) SalesOpen(now time.Time) bool {
	if t.SalesStart != nil && now.Before(*t.SalesStart) {
		return false
	}
	if t.SalesEnd != nil && !now.Before(*t.SalesEnd) {
		return false
	}
	return true
}

func (t *TicketType) SoldQuantity() int {
	return t.TotalQuantity - t.AvailableQuantity
}

// CheckInvariant reports an ErrInvariantViolation when the counter has left [0, total].
func (t *TicketType) CheckInvariant() error {
	if t.AvailableQuantity < 0 || t.AvailableQuantity > t.TotalQuantity {
		return fmt.Errorf("%w: ticket type %s available=%d total=%d",
			ErrInvariantViolation, t.ID, t.AvailableQuantity, t.TotalQuantity)
	}
	return nil
}
