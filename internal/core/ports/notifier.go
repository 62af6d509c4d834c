package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/srgjo27/ticket_marketplace/internal/core/domain"
)

// Notifier informs the mailer that an order was paid.
type Notifier interface {
	OrderPaid(ctx context.Context, order *domain.Order, tickets []domain.Ticket) error
}

// AvailabilityCache holds read-side event snapshots. Misses return (nil, nil).
type AvailabilityCache interface {
	GetEvent(ctx context.Context, eventID uuid.UUID) (*domain.Event, error)
	SetEvent(ctx context.Context, event *domain.Event) error
	Invalidate(ctx context.Context, eventID uuid.UUID) error
}
