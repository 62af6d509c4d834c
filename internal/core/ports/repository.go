package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/ticket_marketplace/internal/core/domain"
)

type EventRepository interface {
	CreateEvent(ctx context.Context, event *domain.Event) error
	GetEvent(ctx context.Context, eventID uuid.UUID) (*domain.Event, error)
	ListEvents(ctx context.Context, status domain.EventStatus) ([]domain.Event, error)
	// UpdateEventStatus changes the status only if it is still from.
	UpdateEventStatus(ctx context.Context, eventID uuid.UUID, from, to domain.EventStatus) error
	AddTicketType(ctx context.Context, ticketType *domain.TicketType) error
	GetTicketType(ctx context.Context, ticketTypeID uuid.UUID) (*domain.TicketType, error)
	// SetTicketTypeCapacity resets total and available together; it fails with
	// domain.ErrTicketTypeSold once the type has ever sold.
	SetTicketTypeCapacity(ctx context.Context, ticketTypeID uuid.UUID, total int) error
}

// InventoryLedger owns available-quantity counters. Every method is a single
// atomic operation per ticket type.
type InventoryLedger interface {
	// Reserve decrements availability by quantity or fails with
	// domain.ErrInsufficientInventory without changing anything.
	Reserve(ctx context.Context, ticketTypeID uuid.UUID, quantity int) error
	// Release increments availability, never above the total quantity.
	Release(ctx context.Context, ticketTypeID uuid.UUID, quantity int) error
}

type OrderRepository interface {
	// CreateOrder persists a new order; it fails with domain.ErrDuplicateNumber
	// when the order number is taken.
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	GetOrderBySession(ctx context.Context, sessionID string) (*domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]domain.Order, error)
	// TransitionOrder applies t only if the stored status is in t.From, and
	// returns the updated order. Otherwise it returns domain.ErrStatusChanged.
	TransitionOrder(ctx context.Context, orderID uuid.UUID, t domain.OrderTransition) (*domain.Order, error)
	AttachTickets(ctx context.Context, orderID uuid.UUID, ticketIDs []uuid.UUID) error
	// ListStalePending returns PENDING orders created before createdBefore,
	// ordered by id and starting after the after cursor (uuid.Nil for the
	// first page).
	ListStalePending(ctx context.Context, createdBefore time.Time, after uuid.UUID, limit int) ([]domain.Order, error)
	// ListLapsedCheckouts returns PROCESSING orders whose session expired
	// before expiredBefore, paged the same way as ListStalePending.
	ListLapsedCheckouts(ctx context.Context, expiredBefore time.Time, after uuid.UUID, limit int) ([]domain.Order, error)
}

type TicketRepository interface {
	// CreateTickets inserts the batch and returns how many were inserted;
	// units that already exist for the same (line item, unit index) are skipped.
	CreateTickets(ctx context.Context, tickets []domain.Ticket) (int, error)
	ListTicketsByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.Ticket, error)
	ListTicketsByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Ticket, error)
	GetTicket(ctx context.Context, ticketID uuid.UUID) (*domain.Ticket, error)
	// FindTicket matches lookup exactly against ticket number or code.
	FindTicket(ctx context.Context, lookup string) (*domain.Ticket, error)
	// MarkUsed flips VALID to USED; any other stored status yields domain.ErrStatusChanged.
	MarkUsed(ctx context.Context, ticketID uuid.UUID, usedAt time.Time, usedBy string) (*domain.Ticket, error)
	// SetOrderTicketsStatus moves the order's VALID tickets to status and returns how many moved.
	SetOrderTicketsStatus(ctx context.Context, orderID uuid.UUID, status domain.TicketStatus) (int, error)
}
