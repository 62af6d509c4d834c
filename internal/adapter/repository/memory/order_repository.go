package memory

import (
	"bytes"
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/ticket_marketplace/internal/core/domain"
)

func (s *Store) CreateOrder(_ context.Context, order *domain.Order) error {
	s.ordersMu.Lock()
	defer s.ordersMu.Unlock()

	if _, taken := s.orderNumbers[order.Number]; taken {
		return domain.ErrDuplicateNumber
	}

	s.orders[order.ID] = copyOrder(order)
	s.orderNumbers[order.Number] = order.ID
	if order.PaymentSessionID != "" {
		s.sessions[order.PaymentSessionID] = order.ID
	}

	return nil
}

func (s *Store) GetOrder(_ context.Context, orderID uuid.UUID) (*domain.Order, error) {
	s.ordersMu.RLock()
	defer s.ordersMu.RUnlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return copyOrder(o), nil
}

func (s *Store) GetOrderBySession(_ context.Context, sessionID string) (*domain.Order, error) {
	s.ordersMu.RLock()
	defer s.ordersMu.RUnlock()

	id, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return copyOrder(s.orders[id]), nil
}

func (s *Store) ListOrdersByUser(_ context.Context, userID uuid.UUID) ([]domain.Order, error) {
	s.ordersMu.RLock()
	defer s.ordersMu.RUnlock()

	var orders []domain.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			orders = append(orders, *copyOrder(o))
		}
	}

	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})

	return orders, nil
}

func (s *Store) TransitionOrder(_ context.Context, orderID uuid.UUID, t domain.OrderTransition) (*domain.Order, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	s.ordersMu.Lock()
	defer s.ordersMu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	if !t.Allows(o.Status) {
		return nil, domain.ErrStatusChanged
	}

	o.Apply(t)
	if t.SessionID != "" {
		s.sessions[t.SessionID] = o.ID
	}

	return copyOrder(o), nil
}

func (s *Store) AttachTickets(_ context.Context, orderID uuid.UUID, ticketIDs []uuid.UUID) error {
	s.ordersMu.Lock()
	defer s.ordersMu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}

	seen := make(map[uuid.UUID]bool, len(o.TicketIDs))
	for _, id := range o.TicketIDs {
		seen[id] = true
	}
	for _, id := range ticketIDs {
		if !seen[id] {
			o.TicketIDs = append(o.TicketIDs, id)
			seen[id] = true
		}
	}

	return nil
}

func (s *Store) ListStalePending(_ context.Context, createdBefore time.Time, after uuid.UUID, limit int) ([]domain.Order, error) {
	return s.listOrdersAfter(after, limit, func(o *domain.Order) bool {
		return o.Status == domain.OrderPending && o.CreatedAt.Before(createdBefore)
	}), nil
}

func (s *Store) ListLapsedCheckouts(_ context.Context, expiredBefore time.Time, after uuid.UUID, limit int) ([]domain.Order, error) {
	return s.listOrdersAfter(after, limit, func(o *domain.Order) bool {
		return o.Status == domain.OrderProcessing && o.SessionExpiresAt != nil && o.SessionExpiresAt.Before(expiredBefore)
	}), nil
}

// listOrdersAfter pages by id in byte order, matching how Postgres orders uuids.
func (s *Store) listOrdersAfter(after uuid.UUID, limit int, match func(*domain.Order) bool) []domain.Order {
	s.ordersMu.RLock()
	defer s.ordersMu.RUnlock()

	var orders []domain.Order
	for id, o := range s.orders {
		if bytes.Compare(id[:], after[:]) <= 0 || !match(o) {
			continue
		}
		orders = append(orders, *copyOrder(o))
	}

	sort.Slice(orders, func(i, j int) bool {
		return bytes.Compare(orders[i].ID[:], orders[j].ID[:]) < 0
	})
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}

	return orders
}
