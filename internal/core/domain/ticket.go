package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TicketStatus string

const (
	TicketValid     TicketStatus = "VALID"
	TicketUsed      TicketStatus = "USED"
	TicketCancelled TicketStatus = "CANCELLED"
	TicketRefunded  TicketStatus = "REFUNDED"
)

type Ticket struct {
	ID             uuid.UUID
	Number         string
	OrderID        uuid.UUID
	LineItemID     uuid.UUID
	UnitIndex      int
	EventID        uuid.UUID
	TicketTypeID   uuid.UUID
	TicketTypeName string
	OwnerID        uuid.UUID
	Attendee       Attendee
	UnitPrice      decimal.Decimal
	Currency       string
	Code           string
	Status         TicketStatus
	IssuedAt       time.Time
	UsedAt         *time.Time
	UsedBy         string
	UpdatedAt      time.Time
}

// RedemptionConflict explains why a non-VALID ticket cannot be redeemed.
// It returns nil for a VALID ticket.
func (t *Ticket) RedemptionConflict() error {
	var kind error
	switch t.Status {
	case TicketValid:
		return nil
	case TicketUsed:
		kind = ErrTicketAlreadyUsed
	case TicketCancelled:
		kind = ErrTicketCancelled
	case TicketRefunded:
		kind = ErrTicketRefunded
	default:
		kind = ErrInvariantViolation
	}

	return &StateConflictError{
		Entity:  "ticket",
		ID:      t.ID,
		Current: string(t.Status),
		Err:     kind,
		UsedAt:  t.UsedAt,
		UsedBy:  t.UsedBy,
	}
}
