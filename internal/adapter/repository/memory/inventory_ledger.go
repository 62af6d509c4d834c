package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/srgjo27/ticket_marketplace/internal/core/domain"
)

func (s *Store) Reserve(_ context.Context, ticketTypeID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	tt, lock, ok := s.lockType(ticketTypeID)
	if !ok {
		return domain.ErrTicketTypeNotFound
	}
	defer lock.Unlock()

	if err := tt.CheckInvariant(); err != nil {
		return err
	}
	if tt.AvailableQuantity < quantity {
		return domain.ErrInsufficientInventory
	}

	tt.AvailableQuantity -= quantity
	tt.HasSold = true

	return nil
}

func (s *Store) Release(_ context.Context, ticketTypeID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}

	tt, lock, ok := s.lockType(ticketTypeID)
	if !ok {
		return domain.ErrTicketTypeNotFound
	}
	defer lock.Unlock()

	tt.AvailableQuantity = min(tt.AvailableQuantity+quantity, tt.TotalQuantity)

	return nil
}
