// Package memory is a process-local implementation of the repositories and
// the inventory ledger. Counters are guarded by a mutex per ticket type so
// reservations on different types never contend.
package memory

import (
	"sync"

	"github.com/google/uuid"
	"github.com/srgjo27/ticket_marketplace/internal/core/domain"
)

type unitKey struct {
	lineItemID uuid.UUID
	unitIndex  int
}

type Store struct {
	mu sync.RWMutex

	events      map[uuid.UUID]*domain.Event
	eventTypes  map[uuid.UUID][]uuid.UUID
	ticketTypes map[uuid.UUID]*domain.TicketType
	typeLocks   map[uuid.UUID]*sync.Mutex

	ordersMu     sync.RWMutex
	orders       map[uuid.UUID]*domain.Order
	orderNumbers map[string]uuid.UUID
	sessions     map[string]uuid.UUID

	ticketsMu     sync.RWMutex
	tickets       map[uuid.UUID]*domain.Ticket
	orderTickets  map[uuid.UUID][]uuid.UUID
	ownerTickets  map[uuid.UUID][]uuid.UUID
	ticketUnits   map[unitKey]uuid.UUID
	ticketLookups map[string]uuid.UUID
}

func NewStore() *Store {
	return &Store{
		events:        make(map[uuid.UUID]*domain.Event),
		eventTypes:    make(map[uuid.UUID][]uuid.UUID),
		ticketTypes:   make(map[uuid.UUID]*domain.TicketType),
		typeLocks:     make(map[uuid.UUID]*sync.Mutex),
		orders:        make(map[uuid.UUID]*domain.Order),
		orderNumbers:  make(map[string]uuid.UUID),
		sessions:      make(map[string]uuid.UUID),
		tickets:       make(map[uuid.UUID]*domain.Ticket),
		orderTickets:  make(map[uuid.UUID][]uuid.UUID),
		ownerTickets:  make(map[uuid.UUID][]uuid.UUID),
		ticketUnits:   make(map[unitKey]uuid.UUID),
		ticketLookups: make(map[string]uuid.UUID),
	}
}

// lockType returns the ticket type with its mutex held. The caller must unlock.
func (s *Store) lockType(id uuid.UUID) (*domain.TicketType, *sync.Mutex, bool) {
	s.mu.RLock()
	tt, ok := s.ticketTypes[id]
	lock := s.typeLocks[id]
	s.mu.RUnlock()

	if !ok {
		return nil, nil, false
	}

	lock.Lock()
	return tt, lock, true
}

func copyOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Items = append([]domain.LineItem(nil), o.Items...)
	cp.TicketIDs = append([]uuid.UUID(nil), o.TicketIDs...)
	return &cp
}
