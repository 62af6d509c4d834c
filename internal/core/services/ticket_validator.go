package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/ticket_marketplace/internal/core/domain"
	"github.com/srgjo27/ticket_marketplace/internal/core/ports"
	"github.com/srgjo27/ticket_marketplace/internal/platform/metrics"
	"go.uber.org/zap"
)

// TicketValidator redeems tickets at the door.
type TicketValidator struct {
	tickets ports.TicketRepository
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewTicketValidator(tickets ports.TicketRepository, logger *zap.Logger, m *metrics.Metrics) *TicketValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketValidator{tickets: tickets, logger: logger, metrics: m, now: time.Now}
}

// Validate looks up a ticket by exact number or code and marks it USED.
// When the ticket exists but cannot be redeemed, the current ticket is
// returned alongside the conflict so the scanner can show who used it.
// eventID, when set, must match the ticket's event.
func (v *TicketValidator) Validate(ctx context.Context, staffID, lookup string, eventID *uuid.UUID) (*domain.Ticket, error) {
	if lookup == "" {
		v.metrics.TicketValidated("invalid")
		return nil, domain.NewValidationError("ticket number or code is required", nil)
	}

	ticket, err := v.tickets.FindTicket(ctx, lookup)
	if errors.Is(err, domain.ErrTicketNotFound) {
		v.metrics.TicketValidated("not_found")
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("find ticket: %w", err)
	}

	if eventID != nil && *eventID != ticket.EventID {
		v.metrics.TicketValidated("wrong_event")
		return ticket, domain.NewValidationError("ticket is for a different event", domain.ErrEventMismatch)
	}

	if conflict := ticket.RedemptionConflict(); conflict != nil {
		v.metrics.TicketValidated("rejected")
		return ticket, conflict
	}

	used, err := v.tickets.MarkUsed(ctx, ticket.ID, v.now(), staffID)
	if errors.Is(err, domain.ErrStatusChanged) {
		current, getErr := v.tickets.GetTicket(ctx, ticket.ID)
		if getErr != nil {
			return nil, getErr
		}
		v.metrics.TicketValidated("rejected")
		if conflict := current.RedemptionConflict(); conflict != nil {
			return current, conflict
		}
		return nil, fmt.Errorf("redeem ticket %s: %w", ticket.ID, domain.ErrInvariantViolation)
	}
	if err != nil {
		return nil, fmt.Errorf("redeem ticket: %w", err)
	}

	v.metrics.TicketValidated("accepted")
	v.logger.Info("Ticket redeemed",
		zap.String("ticket_id", used.ID.String()),
		zap.String("event_id", used.EventID.String()),
		zap.String("staff_id", staffID),
	)

	return used, nil
}
