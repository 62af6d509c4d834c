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

// TicketIssuer turns a PAID order into one ticket per purchased unit.
type TicketIssuer struct {
	orders  ports.OrderRepository
	tickets ports.TicketRepository
	signer  *CodeSigner
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewTicketIssuer(orders ports.OrderRepository, tickets ports.TicketRepository, signer *CodeSigner, logger *zap.Logger, m *metrics.Metrics) *TicketIssuer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketIssuer{
		orders:  orders,
		tickets: tickets,
		signer:  signer,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// Issue creates the order's missing tickets and returns the full set. The
// bool reports whether this call created any. Units already issued are never
// issued twice, so retries and concurrent confirmations are harmless.
func (i *TicketIssuer) Issue(ctx context.Context, order *domain.Order) ([]domain.Ticket, bool, error) {
	if order.Status != domain.OrderPaid {
		return nil, false, domain.OrderConflict(order, domain.ErrOrderNotPaid)
	}

	existing, err := i.tickets.ListTicketsByOrder(ctx, order.ID)
	if err != nil {
		return nil, false, fmt.Errorf("list tickets: %w", err)
	}
	if len(existing) >= order.UnitCount() {
		return existing, false, nil
	}

	issued := make(map[unitKey]bool, len(existing))
	for _, t := range existing {
		issued[unitKey{t.LineItemID, t.UnitIndex}] = true
	}

	var created int
	var stored bool
	for attempt := 0; attempt < maxNumberAttempts && !stored; attempt++ {
		batch, err := i.build(order, issued)
		if err != nil {
			return nil, false, err
		}

		created, err = i.tickets.CreateTickets(ctx, batch)
		switch {
		case errors.Is(err, domain.ErrDuplicateNumber):
			continue
		case err != nil:
			return nil, false, fmt.Errorf("create tickets: %w", err)
		}
		stored = true
	}
	if !stored {
		return nil, false, fmt.Errorf("create tickets: %w", domain.ErrDuplicateNumber)
	}

	all, err := i.tickets.ListTicketsByOrder(ctx, order.ID)
	if err != nil {
		return nil, false, fmt.Errorf("list tickets: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(all))
	for _, t := range all {
		ids = append(ids, t.ID)
	}
	if err := i.orders.AttachTickets(ctx, order.ID, ids); err != nil {
		return nil, false, fmt.Errorf("attach tickets: %w", err)
	}

	// A concurrent issuer may have inserted these units first.
	if created == 0 {
		return all, false, nil
	}

	i.metrics.TicketsIssued(created)
	i.logger.Info("Tickets issued",
		zap.String("order_id", order.ID.String()),
		zap.Int("count", created),
	)

	return all, true, nil
}

type unitKey struct {
	lineItemID uuid.UUID
	index      int
}

func (i *TicketIssuer) build(order *domain.Order, issued map[unitKey]bool) ([]domain.Ticket, error) {
	now := i.now()
	var batch []domain.Ticket

	for _, item := range order.Items {
		for unit := 0; unit < item.Quantity; unit++ {
			if issued[unitKey{item.ID, unit}] {
				continue
			}

			number, err := newNumber("TKT", now)
			if err != nil {
				return nil, err
			}

			ticket := domain.Ticket{
				ID:             uuid.New(),
				Number:         number,
				OrderID:        order.ID,
				LineItemID:     item.ID,
				UnitIndex:      unit,
				EventID:        item.EventID,
				TicketTypeID:   item.TicketTypeID,
				TicketTypeName: item.TicketTypeName,
				OwnerID:        order.UserID,
				Attendee:       order.Attendee,
				UnitPrice:      item.UnitPrice,
				Currency:       item.Currency,
				Status:         domain.TicketValid,
				IssuedAt:       now,
				UpdatedAt:      now,
			}

			ticket.Code, err = i.signer.Encode(CodeClaims{
				TicketID:   ticket.ID.String(),
				Number:     ticket.Number,
				EventID:    ticket.EventID.String(),
				Name:       ticket.Attendee.Name,
				Email:      ticket.Attendee.Email,
				TicketType: ticket.TicketTypeName,
				Price:      ticket.UnitPrice.String(),
				Currency:   ticket.Currency,
				IssuedAt:   now.Unix(),
			})
			if err != nil {
				return nil, fmt.Errorf("encode ticket code: %w", err)
			}

			batch = append(batch, ticket)
		}
	}

	return batch, nil
}
