package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/srgjo27/ticket_marketplace/internal/core/domain"
	"github.com/srgjo27/ticket_marketplace/internal/core/ports"
	"go.uber.org/zap"
)

type CreateEventRequest struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=5000"`
	Venue       string    `json:"venue" validate:"required,max=200"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	EndsAt      time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
	Capacity    int       `json:"capacity" validate:"gte=0"`
}

type AddTicketTypeRequest struct {
	Name                string          `json:"name" validate:"required,max=100"`
	UnitPrice           decimal.Decimal `json:"unit_price"`
	Currency            string          `json:"currency" validate:"required,len=3"`
	TotalQuantity       int             `json:"total_quantity" validate:"gte=0"`
	MaxQuantityPerOrder int             `json:"max_quantity_per_order" validate:"gte=0"`
	SalesStart          *time.Time      `json:"sales_start,omitempty"`
	SalesEnd            *time.Time      `json:"sales_end,omitempty"`
}

// EventService manages the catalog: events, their ticket types and the
// event lifecycle. Reads go through the availability cache.
type EventService struct {
	events ports.EventRepository
	cache  ports.AvailabilityCache
	logger *zap.Logger
	now    func() time.Time
}

var maxUnitPrice = decimal.New(1, 10)

func NewEventService(events ports.EventRepository, cache ports.AvailabilityCache, logger *zap.Logger) *EventService {
	if cache == nil {
		cache = noopCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{events: events, cache: cache, logger: logger, now: time.Now}
}

func (s *EventService) CreateEvent(ctx context.Context, req CreateEventRequest) (*domain.Event, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	now := s.now()
	event := &domain.Event{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Venue:       strings.TrimSpace(req.Venue),
		StartsAt:    req.StartsAt.UTC(),
		EndsAt:      req.EndsAt.UTC(),
		Capacity:    req.Capacity,
		Status:      domain.EventDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.events.CreateEvent(ctx, event); err != nil {
		s.logger.Error("Failed to create event", zap.Error(err))
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	s.logger.Info("Event created",
		zap.String("event_id", event.ID.String()),
		zap.String("title", event.Title),
	)

	return event, nil
}

func (s *EventService) AddTicketType(ctx context.Context, eventID uuid.UUID, req AddTicketTypeRequest) (*domain.TicketType, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.UnitPrice.IsNegative() {
		return nil, domain.NewValidationError("unit_price must not be negative", domain.ErrInvalidTicketType)
	}
	// Prices are stored as NUMERIC(12,2).
	if !req.UnitPrice.Equal(req.UnitPrice.Truncate(2)) {
		return nil, domain.NewValidationError("unit_price must have at most 2 decimal places", domain.ErrInvalidTicketType)
	}
	if req.UnitPrice.GreaterThanOrEqual(maxUnitPrice) {
		return nil, domain.NewValidationError("unit_price is too large", domain.ErrInvalidTicketType)
	}
	if req.SalesStart != nil && req.SalesEnd != nil && !req.SalesEnd.After(*req.SalesStart) {
		return nil, domain.NewValidationError("sales_end must be after sales_start", domain.ErrInvalidTicketType)
	}

	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Status.IsTerminal() {
		return nil, &domain.StateConflictError{
			Entity:  "event",
			ID:      event.ID,
			Current: string(event.Status),
			Err:     domain.ErrInvalidEvent,
		}
	}
	if err := checkCapacity(event, req.TotalQuantity); err != nil {
		return nil, err
	}

	now := s.now()
	tt := &domain.TicketType{
		ID:                  uuid.New(),
		EventID:             event.ID,
		Name:                strings.TrimSpace(req.Name),
		UnitPrice:           req.UnitPrice,
		Currency:            strings.ToUpper(req.Currency),
		TotalQuantity:       req.TotalQuantity,
		AvailableQuantity:   req.TotalQuantity,
		MaxQuantityPerOrder: req.MaxQuantityPerOrder,
		SalesStart:          req.SalesStart,
		SalesEnd:            req.SalesEnd,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.events.AddTicketType(ctx, tt); err != nil {
		return nil, fmt.Errorf("failed to add ticket type: %w", err)
	}
	s.invalidate(ctx, event.ID)

	return tt, nil
}

// ChangeStatus moves the event forward in its lifecycle.
func (s *EventService) ChangeStatus(ctx context.Context, eventID uuid.UUID, to domain.EventStatus) (*domain.Event, error) {
	if !to.Valid() {
		return nil, domain.NewValidationError(fmt.Sprintf("unknown event status %q", to), domain.ErrInvalidEvent)
	}

	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Status == to {
		return event, nil
	}
	if !event.Status.CanTransitionTo(to) {
		return nil, &domain.StateConflictError{
			Entity:  "event",
			ID:      event.ID,
			Current: string(event.Status),
			Err:     domain.ErrInvalidEventTransition,
		}
	}

	err = s.events.UpdateEventStatus(ctx, event.ID, event.Status, to)
	if errors.Is(err, domain.ErrStatusChanged) {
		current, getErr := s.events.GetEvent(ctx, eventID)
		if getErr != nil {
			return nil, getErr
		}
		return nil, &domain.StateConflictError{
			Entity:  "event",
			ID:      current.ID,
			Current: string(current.Status),
			Err:     domain.ErrInvalidEventTransition,
		}
	}
	if err != nil {
		return nil, fmt.Errorf("update event status: %w", err)
	}

	s.invalidate(ctx, event.ID)
	s.logger.Info("Event status changed",
		zap.String("event_id", event.ID.String()),
		zap.String("from", string(event.Status)),
		zap.String("to", string(to)),
	)

	event.Status = to
	return event, nil
}

// UpdateCapacity resets a ticket type's quantity. Only allowed before the
// type's first sale.
func (s *EventService) UpdateCapacity(ctx context.Context, ticketTypeID uuid.UUID, total int) (*domain.TicketType, error) {
	if total < 0 {
		return nil, domain.NewValidationError("total_quantity must not be negative", domain.ErrInvalidTicketType)
	}

	tt, err := s.events.GetTicketType(ctx, ticketTypeID)
	if err != nil {
		return nil, err
	}
	event, err := s.events.GetEvent(ctx, tt.EventID)
	if err != nil {
		return nil, err
	}
	if err := checkCapacity(event, total-tt.TotalQuantity); err != nil {
		return nil, err
	}

	err = s.events.SetTicketTypeCapacity(ctx, ticketTypeID, total)
	if errors.Is(err, domain.ErrTicketTypeSold) {
		return nil, &domain.StateConflictError{
			Entity:  "ticket_type",
			ID:      tt.ID,
			Current: fmt.Sprintf("sold %d of %d", tt.SoldQuantity(), tt.TotalQuantity),
			Err:     err,
		}
	}
	if err != nil {
		return nil, fmt.Errorf("update capacity: %w", err)
	}

	s.invalidate(ctx, tt.EventID)

	return s.events.GetTicketType(ctx, ticketTypeID)
}

func (s *EventService) GetEvent(ctx context.Context, eventID uuid.UUID) (*domain.Event, error) {
	cached, err := s.cache.GetEvent(ctx, eventID)
	if err != nil {
		s.logger.Warn("Availability cache read failed", zap.String("event_id", eventID.String()), zap.Error(err))
	}
	if cached != nil {
		return cached, nil
	}

	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetEvent(ctx, event); err != nil {
		s.logger.Warn("Availability cache write failed", zap.String("event_id", eventID.String()), zap.Error(err))
	}

	return event, nil
}

// ListEvents returns events in status, or all events when status is empty.
func (s *EventService) ListEvents(ctx context.Context, status domain.EventStatus) ([]domain.Event, error) {
	if status != "" && !status.Valid() {
		return nil, domain.NewValidationError(fmt.Sprintf("unknown event status %q", status), domain.ErrInvalidEvent)
	}
	return s.events.ListEvents(ctx, status)
}

func (s *EventService) invalidate(ctx context.Context, eventID uuid.UUID) {
	if err := s.cache.Invalidate(ctx, eventID); err != nil {
		s.logger.Warn("Failed to invalidate availability cache",
			zap.String("event_id", eventID.String()),
			zap.Error(err),
		)
	}
}

// checkCapacity rejects growth that would allocate more units than the venue holds.
func checkCapacity(event *domain.Event, delta int) error {
	if event.Capacity == 0 || delta <= 0 {
		return nil
	}
	if allocated := event.AllocatedQuantity() + delta; allocated > event.Capacity {
		return domain.NewValidationError(
			fmt.Sprintf("ticket types would allocate %d units, event capacity is %d", allocated, event.Capacity),
			domain.ErrInvalidTicketType)
	}
	return nil
}
