package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/ticket_marketplace/internal/core/domain"
)

func (s *Store) CreateTickets(_ context.Context, tickets []domain.Ticket) (int, error) {
	s.ticketsMu.Lock()
	defer s.ticketsMu.Unlock()

	fresh := make([]domain.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if _, exists := s.ticketUnits[unitKey{t.LineItemID, t.UnitIndex}]; exists {
			continue
		}
		if _, taken := s.ticketLookups[t.Number]; taken {
			return 0, domain.ErrDuplicateNumber
		}
		if _, taken := s.ticketLookups[t.Code]; taken {
			return 0, domain.ErrDuplicateNumber
		}
		fresh = append(fresh, t)
	}

	for i := range fresh {
		t := fresh[i]
		s.tickets[t.ID] = &t
		s.orderTickets[t.OrderID] = append(s.orderTickets[t.OrderID], t.ID)
		s.ownerTickets[t.OwnerID] = append(s.ownerTickets[t.OwnerID], t.ID)
		s.ticketUnits[unitKey{t.LineItemID, t.UnitIndex}] = t.ID
		s.ticketLookups[t.Number] = t.ID
		s.ticketLookups[t.Code] = t.ID
	}

	return len(fresh), nil
}

func (s *Store) collect(ids []uuid.UUID) []domain.Ticket {
	tickets := make([]domain.Ticket, 0, len(ids))
	for _, id := range ids {
		tickets = append(tickets, *s.tickets[id])
	}
	return tickets
}

func (s *Store) ListTicketsByOrder(_ context.Context, orderID uuid.UUID) ([]domain.Ticket, error) {
	s.ticketsMu.RLock()
	defer s.ticketsMu.RUnlock()

	return s.collect(s.orderTickets[orderID]), nil
}

func (s *Store) ListTicketsByOwner(_ context.Context, ownerID uuid.UUID) ([]domain.Ticket, error) {
	s.ticketsMu.RLock()
	defer s.ticketsMu.RUnlock()

	return s.collect(s.ownerTickets[ownerID]), nil
}

func (s *Store) GetTicket(_ context.Context, ticketID uuid.UUID) (*domain.Ticket, error) {
	s.ticketsMu.RLock()
	defer s.ticketsMu.RUnlock()

	t, ok := s.tickets[ticketID]
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *Store) FindTicket(_ context.Context, lookup string) (*domain.Ticket, error) {
	s.ticketsMu.RLock()
	defer s.ticketsMu.RUnlock()

	id, ok := s.ticketLookups[lookup]
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	cp := *s.tickets[id]
	return &cp, nil
}

func (s *Store) MarkUsed(_ context.Context, ticketID uuid.UUID, usedAt time.Time, usedBy string) (*domain.Ticket, error) {
	s.ticketsMu.Lock()
	defer s.ticketsMu.Unlock()

	t, ok := s.tickets[ticketID]
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	if t.Status != domain.TicketValid {
		return nil, domain.ErrStatusChanged
	}

	t.Status = domain.TicketUsed
	t.UsedAt = &usedAt
	t.UsedBy = usedBy
	t.UpdatedAt = usedAt

	cp := *t
	return &cp, nil
}

func (s *Store) SetOrderTicketsStatus(_ context.Context, orderID uuid.UUID, status domain.TicketStatus) (int, error) {
	s.ticketsMu.Lock()
	defer s.ticketsMu.Unlock()

	var n int
	now := time.Now()
	for _, id := range s.orderTickets[orderID] {
		t := s.tickets[id]
		if t.Status != domain.TicketValid {
			continue
		}
		t.Status = status
		t.UpdatedAt = now
		n++
	}

	return n, nil
}
