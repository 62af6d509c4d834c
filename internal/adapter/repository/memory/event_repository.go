package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/srgjo27/ticket_marketplace/internal/core/domain"
)

func (s *Store) CreateEvent(_ context.Context, event *domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *event
	cp.TicketTypes = nil
	s.events[event.ID] = &cp

	for i := range event.TicketTypes {
		tt := event.TicketTypes[i]
		s.ticketTypes[tt.ID] = &tt
		s.typeLocks[tt.ID] = &sync.Mutex{}
		s.eventTypes[event.ID] = append(s.eventTypes[event.ID], tt.ID)
	}

	return nil
}

func (s *Store) GetEvent(_ context.Context, eventID uuid.UUID) (*domain.Event, error) {
	s.mu.RLock()
	ev, ok := s.events[eventID]
	if !ok {
		s.mu.RUnlock()
		return nil, domain.ErrEventNotFound
	}
	cp := *ev
	typeIDs := append([]uuid.UUID(nil), s.eventTypes[eventID]...)
	s.mu.RUnlock()

	for _, id := range typeIDs {
		tt, lock, ok := s.lockType(id)
		if !ok {
			continue
		}
		cp.TicketTypes = append(cp.TicketTypes, *tt)
		lock.Unlock()
	}

	return &cp, nil
}

func (s *Store) ListEvents(ctx context.Context, status domain.EventStatus) ([]domain.Event, error) {
	s.mu.RLock()
	ids := make([]uuid.UUID, 0, len(s.events))
	for id, ev := range s.events {
		if status == "" || ev.Status == status {
			ids = append(ids, id)
		}
	}
	s.mu.RUnlock()

	events := make([]domain.Event, 0, len(ids))
	for _, id := range ids {
		ev, err := s.GetEvent(ctx, id)
		if err != nil {
			continue
		}
		events = append(events, *ev)
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].StartsAt.Before(events[j].StartsAt)
	})

	return events, nil
}

func (s *Store) UpdateEventStatus(_ context.Context, eventID uuid.UUID, from, to domain.EventStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[eventID]
	if !ok {
		return domain.ErrEventNotFound
	}
	if ev.Status != from {
		return domain.ErrStatusChanged
	}

	ev.Status = to
	return nil
}

func (s *Store) AddTicketType(_ context.Context, ticketType *domain.TicketType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[ticketType.EventID]; !ok {
		return domain.ErrEventNotFound
	}

	tt := *ticketType
	s.ticketTypes[tt.ID] = &tt
	s.typeLocks[tt.ID] = &sync.Mutex{}
	s.eventTypes[tt.EventID] = append(s.eventTypes[tt.EventID], tt.ID)

	return nil
}

func (s *Store) GetTicketType(_ context.Context, ticketTypeID uuid.UUID) (*domain.TicketType, error) {
	tt, lock, ok := s.lockType(ticketTypeID)
	if !ok {
		return nil, domain.ErrTicketTypeNotFound
	}
	defer lock.Unlock()

	cp := *tt
	return &cp, nil
}

func (s *Store) SetTicketTypeCapacity(_ context.Context, ticketTypeID uuid.UUID, total int) error {
	tt, lock, ok := s.lockType(ticketTypeID)
	if !ok {
		return domain.ErrTicketTypeNotFound
	}
	defer lock.Unlock()

	if tt.HasSold {
		return domain.ErrTicketTypeSold
	}

	tt.TotalQuantity = total
	tt.AvailableQuantity = total
	return nil
}
