package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/srgjo27/ticket_marketplace/internal/core/domain"
	"github.com/srgjo27/ticket_marketplace/internal/core/ports"
	"github.com/srgjo27/ticket_marketplace/internal/platform/metrics"
	"go.uber.org/zap"
)

const maxNumberAttempts = 5

type CartItem struct {
	TicketTypeID uuid.UUID `json:"ticket_type_id" validate:"required"`
	Quantity     int       `json:"quantity" validate:"gt=0"`
	// UnitPrice is what the client displayed. It is never used for the total.
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

type AttendeeInfo struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"max=32"`
}

type CreateOrderRequest struct {
	Items    []CartItem   `json:"items" validate:"dive"`
	Attendee AttendeeInfo `json:"attendee"`
}

type OrderConfig struct {
	SessionTTL     time.Duration
	PaymentTimeout time.Duration
	NotifyTimeout  time.Duration
	SuccessURL     string
	CancelURL      string
}

type OrderDeps struct {
	Events   ports.EventRepository
	Ledger   ports.InventoryLedger
	Orders   ports.OrderRepository
	Tickets  ports.TicketRepository
	Payments ports.PaymentGateway
	Issuer   *TicketIssuer
	Notifier ports.Notifier
	Cache    ports.AvailabilityCache
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
}

// OrderService is the order state machine. It reserves inventory at creation,
// hands off to the payment gateway, and issues tickets on confirmation.
type OrderService struct {
	events   ports.EventRepository
	ledger   ports.InventoryLedger
	orders   ports.OrderRepository
	tickets  ports.TicketRepository
	payments ports.PaymentGateway
	issuer   *TicketIssuer
	notifier ports.Notifier
	cache    ports.AvailabilityCache
	logger   *zap.Logger
	metrics  *metrics.Metrics
	cfg      OrderConfig
	now      func() time.Time

	background sync.WaitGroup
}

func NewOrderService(deps OrderDeps, cfg OrderConfig) *OrderService {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	if cfg.PaymentTimeout == 0 {
		cfg.PaymentTimeout = 5 * time.Second
	}
	if cfg.NotifyTimeout == 0 {
		cfg.NotifyTimeout = 10 * time.Second
	}

	s := &OrderService{
		events:   deps.Events,
		ledger:   deps.Ledger,
		orders:   deps.Orders,
		tickets:  deps.Tickets,
		payments: deps.Payments,
		issuer:   deps.Issuer,
		notifier: deps.Notifier,
		cache:    deps.Cache,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		cfg:      cfg,
		now:      time.Now,
	}
	if s.notifier == nil {
		s.notifier = noopNotifier{}
	}
	if s.cache == nil {
		s.cache = noopCache{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	return s
}

// Wait blocks until background notifications have finished.
func (s *OrderService) Wait() {
	s.background.Wait()
}

func (s *OrderService) CreateOrder(ctx context.Context, buyer domain.Buyer, req CreateOrderRequest) (*domain.Order, error) {
	if len(req.Items) == 0 {
		return nil, domain.NewValidationError("cart must contain at least one item", domain.ErrEmptyCart)
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	lines, err := s.priceCart(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	var reserved []domain.LineItem
	for i, line := range lines {
		if err := s.ledger.Reserve(ctx, line.TicketTypeID, line.Quantity); err != nil {
			s.releaseLines(ctx, uuid.Nil, reserved, "compensate partial reservation")

			switch {
			case errors.Is(err, domain.ErrInsufficientInventory):
				s.metrics.ReservationAttempted("insufficient")
				return nil, lineError(i, line.TicketTypeID, "insufficient inventory", err)
			case errors.Is(err, domain.ErrTicketTypeNotFound):
				s.metrics.ReservationAttempted("not_found")
				return nil, lineError(i, line.TicketTypeID, "unknown ticket type", err)
			case errors.Is(err, domain.ErrInvariantViolation):
				s.logger.Error("Inventory invariant violated during reservation",
					zap.String("ticket_type_id", line.TicketTypeID.String()),
					zap.Error(err),
				)
			}

			s.metrics.ReservationAttempted("error")
			return nil, fmt.Errorf("reserve ticket type %s: %w", line.TicketTypeID, err)
		}

		s.metrics.ReservationAttempted("ok")
		reserved = append(reserved, line)
	}

	now := s.now()
	order := &domain.Order{
		ID:         uuid.New(),
		UserID:     buyer.UserID,
		BuyerEmail: buyer.Email,
		Attendee: domain.Attendee{
			Name:  req.Attendee.Name,
			Email: req.Attendee.Email,
			Phone: req.Attendee.Phone,
		},
		Items:     lines,
		Currency:  lines[0].Currency,
		Status:    domain.OrderPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i := range order.Items {
		order.Items[i].ID = uuid.New()
		order.Items[i].OrderID = order.ID
	}
	order.CalculateTotal()

	if err := s.persistOrder(ctx, order); err != nil {
		s.releaseLines(ctx, order.ID, reserved, "compensate failed order insert")
		return nil, err
	}

	s.metrics.OrderTransitioned(string(domain.OrderPending))
	s.invalidate(ctx, lines)

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.Number),
		zap.String("user_id", buyer.UserID.String()),
		zap.String("total", order.TotalAmount.String()),
	)

	return order, nil
}

// priceCart merges duplicate ticket types and reprices every line from the
// stored ticket type. Nothing is reserved yet.
func (s *OrderService) priceCart(ctx context.Context, items []CartItem) ([]domain.LineItem, error) {
	now := s.now()
	events := make(map[uuid.UUID]*domain.Event)
	index := make(map[uuid.UUID]int)
	var lines []domain.LineItem
	var limits []int
	var currency string

	for i, item := range items {
		if at, seen := index[item.TicketTypeID]; seen {
			if item.Quantity > math.MaxInt-lines[at].Quantity {
				return nil, lineError(i, item.TicketTypeID, "combined quantity is too large", domain.ErrInvalidQuantity)
			}
			lines[at].Quantity += item.Quantity
			continue
		}

		tt, err := s.events.GetTicketType(ctx, item.TicketTypeID)
		if errors.Is(err, domain.ErrTicketTypeNotFound) {
			return nil, lineError(i, item.TicketTypeID, "unknown ticket type", err)
		}
		if err != nil {
			return nil, fmt.Errorf("load ticket type %s: %w", item.TicketTypeID, err)
		}

		ev, ok := events[tt.EventID]
		if !ok {
			ev, err = s.events.GetEvent(ctx, tt.EventID)
			if err != nil {
				return nil, fmt.Errorf("load event %s: %w", tt.EventID, err)
			}
			events[tt.EventID] = ev
		}

		if !ev.IsOnSale() || !tt.SalesOpen(now) {
			return nil, lineError(i, item.TicketTypeID, "ticket type is not on sale", domain.ErrTicketTypeNotOnSale)
		}
		if currency != "" && tt.Currency != currency {
			return nil, lineError(i, item.TicketTypeID, "all items must share one currency", domain.ErrMixedCurrency)
		}
		currency = tt.Currency

		index[item.TicketTypeID] = len(lines)
		limits = append(limits, tt.MaxQuantityPerOrder)
		lines = append(lines, domain.LineItem{
			EventID:        tt.EventID,
			TicketTypeID:   tt.ID,
			TicketTypeName: tt.Name,
			Quantity:       item.Quantity,
			UnitPrice:      tt.UnitPrice,
			Currency:       tt.Currency,
		})
	}

	for i, line := range lines {
		if limits[i] > 0 && line.Quantity > limits[i] {
			return nil, lineError(i, line.TicketTypeID,
				fmt.Sprintf("quantity %d exceeds maximum %d per order", line.Quantity, limits[i]),
				domain.ErrQuantityExceedsMax)
		}
	}

	return lines, nil
}

func (s *OrderService) persistOrder(ctx context.Context, order *domain.Order) error {
	var err error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		order.Number, err = newNumber("ORD", order.CreatedAt)
		if err != nil {
			return err
		}

		err = s.orders.CreateOrder(ctx, order)
		if !errors.Is(err, domain.ErrDuplicateNumber) {
			break
		}
	}
	if err != nil {
		s.logger.Error("Failed to create order",
			zap.String("user_id", order.UserID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// BeginCheckout opens a payment session for a PENDING order. Calling it again
// on a PROCESSING order returns the session already recorded.
func (s *OrderService) BeginCheckout(ctx context.Context, buyer domain.Buyer, orderID uuid.UUID) (*ports.PaymentSession, error) {
	order, err := s.ownedOrder(ctx, buyer, orderID)
	if err != nil {
		return nil, err
	}

	switch {
	case order.Status == domain.OrderProcessing && order.PaymentSessionID != "":
		return recordedSession(order), nil
	case order.Status != domain.OrderPending:
		return nil, domain.OrderConflict(order, domain.ErrOrderNotPending)
	}

	expiresAt := s.now().Add(s.cfg.SessionTTL)
	items := make([]ports.SessionLineItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, ports.SessionLineItem{
			Name:      item.TicketTypeName,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.PaymentTimeout)
	defer cancel()

	session, err := s.payments.CreateSession(callCtx, ports.CreateSessionRequest{
		OrderID:    order.ID.String(),
		Amount:     order.TotalAmount,
		Currency:   order.Currency,
		LineItems:  items,
		SuccessURL: s.cfg.SuccessURL,
		CancelURL:  s.cfg.CancelURL,
		ExpiresAt:  expiresAt,
	})
	if err != nil {
		s.logger.Warn("Payment session creation failed",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
		return nil, externalError("create payment session", err)
	}
	if !session.ExpiresAt.IsZero() {
		expiresAt = session.ExpiresAt
	}

	updated, err := s.orders.TransitionOrder(ctx, order.ID, domain.OrderTransition{
		From:             []domain.OrderStatus{domain.OrderPending},
		To:               domain.OrderProcessing,
		At:               s.now(),
		SessionID:        session.SessionID,
		CheckoutURL:      session.RedirectURL,
		SessionExpiresAt: &expiresAt,
	})
	if errors.Is(err, domain.ErrStatusChanged) {
		current, getErr := s.orders.GetOrder(ctx, order.ID)
		if getErr != nil {
			return nil, getErr
		}
		if current.Status == domain.OrderProcessing && current.PaymentSessionID != "" {
			s.logger.Warn("Concurrent checkout won, discarding new session",
				zap.String("order_id", order.ID.String()),
				zap.String("session_id", session.SessionID),
			)
			return recordedSession(current), nil
		}
		return nil, domain.OrderConflict(current, domain.ErrOrderNotPending)
	}
	if err != nil {
		return nil, fmt.Errorf("record payment session: %w", err)
	}

	s.metrics.OrderTransitioned(string(domain.OrderProcessing))

	return recordedSession(updated), nil
}

// ConfirmPayment settles the order bound to sessionID. Replays for an order
// that is already PAID return it unchanged.
func (s *OrderService) ConfirmPayment(ctx context.Context, sessionID string) (*domain.Order, error) {
	if sessionID == "" {
		return nil, domain.NewValidationError("session id is required", nil)
	}

	order, err := s.orders.GetOrderBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return s.confirm(ctx, order)
}

func (s *OrderService) confirm(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	switch order.Status {
	case domain.OrderPaid:
		return s.settle(ctx, order)
	case domain.OrderCancelled, domain.OrderRefunded:
		return nil, domain.OrderConflict(order, domain.ErrOrderCancelled)
	}

	outcome, err := s.sessionOutcome(ctx, order.PaymentSessionID)
	if err != nil {
		return nil, err
	}
	if !outcome.Paid {
		return nil, fmt.Errorf("session %s: %w", order.PaymentSessionID, domain.ErrPaymentNotConfirmed)
	}

	return s.markPaid(ctx, order, outcome)
}

// markPaid records a provider-confirmed payment and settles the order.
func (s *OrderService) markPaid(ctx context.Context, order *domain.Order, outcome *ports.SessionOutcome) (*domain.Order, error) {
	paid, err := s.orders.TransitionOrder(ctx, order.ID, domain.OrderTransition{
		From:       []domain.OrderStatus{domain.OrderPending, domain.OrderProcessing},
		To:         domain.OrderPaid,
		At:         s.now(),
		PaymentRef: outcome.PaymentRef,
	})
	if errors.Is(err, domain.ErrStatusChanged) {
		current, getErr := s.orders.GetOrder(ctx, order.ID)
		if getErr != nil {
			return nil, getErr
		}
		if current.Status == domain.OrderPaid {
			return s.settle(ctx, current)
		}

		s.logger.Error("Payment captured for an order that is no longer payable, manual refund required",
			zap.String("order_id", current.ID.String()),
			zap.String("session_id", current.PaymentSessionID),
			zap.String("payment_ref", outcome.PaymentRef),
			zap.String("status", string(current.Status)),
		)
		return nil, domain.OrderConflict(current, domain.ErrOrderCancelled)
	}
	if err != nil {
		return nil, fmt.Errorf("mark order paid: %w", err)
	}

	s.metrics.OrderTransitioned(string(domain.OrderPaid))
	s.logger.Info("Order paid",
		zap.String("order_id", paid.ID.String()),
		zap.String("payment_ref", paid.PaymentRef),
	)

	return s.settle(ctx, paid)
}

// settle issues tickets for a PAID order. Issuance is idempotent, so this is
// safe on every replay; only the call that created tickets notifies.
func (s *OrderService) settle(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	tickets, created, err := s.issuer.Issue(ctx, order)
	if err != nil {
		s.logger.Error("Ticket issuance failed for paid order",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("issue tickets for order %s: %w", order.ID, err)
	}

	if created {
		s.notifyPaid(ctx, order, tickets)
	}

	return order, nil
}

func (s *OrderService) notifyPaid(ctx context.Context, order *domain.Order, tickets []domain.Ticket) {
	snapshot := *order
	s.background.Add(1)

	go func() {
		defer s.background.Done()

		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.NotifyTimeout)
		defer cancel()

		if err := s.notifier.OrderPaid(notifyCtx, &snapshot, tickets); err != nil {
			s.logger.Warn("Failed to notify order paid",
				zap.String("order_id", snapshot.ID.String()),
				zap.Error(err),
			)
		}
	}()
}

// CancelOrder releases the order's reservation. Cancelling a cancelled order
// is a no-op; a paid order must be refunded instead.
func (s *OrderService) CancelOrder(ctx context.Context, buyer domain.Buyer, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.ownedOrder(ctx, buyer, orderID)
	if err != nil {
		return nil, err
	}

	cancelled, _, err := s.cancel(ctx, order, "cancelled by buyer")
	return cancelled, err
}

// ExpireSession cancels the order bound to a checkout session the provider
// reports as lapsed. Orders that already settled are returned unchanged.
func (s *OrderService) ExpireSession(ctx context.Context, sessionID string) (*domain.Order, error) {
	if sessionID == "" {
		return nil, domain.NewValidationError("session id is required", nil)
	}

	order, err := s.orders.GetOrderBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !order.Status.HoldsInventory() {
		return order, nil
	}

	cancelled, _, err := s.cancel(ctx, order, "session expired")
	if errors.Is(err, domain.ErrOrderAlreadyPaid) {
		return s.orders.GetOrder(ctx, order.ID)
	}
	return cancelled, err
}

// cancel reports whether this call performed the transition.
func (s *OrderService) cancel(ctx context.Context, order *domain.Order, reason string) (*domain.Order, bool, error) {
	// Status only moves forward, so a handful of re-reads always settles.
	for attempt := 0; attempt < 3; attempt++ {
		switch order.Status {
		case domain.OrderCancelled:
			return order, false, nil
		case domain.OrderPaid, domain.OrderRefunded:
			return nil, false, domain.OrderConflict(order, domain.ErrOrderAlreadyPaid)
		}

		cancelled, err := s.orders.TransitionOrder(ctx, order.ID, domain.OrderTransition{
			From:             []domain.OrderStatus{domain.OrderPending, domain.OrderProcessing},
			To:               domain.OrderCancelled,
			At:               s.now(),
			Reason:           reason,
			ReleaseInventory: true,
		})
		if errors.Is(err, domain.ErrStatusChanged) {
			order, err = s.orders.GetOrder(ctx, order.ID)
			if err != nil {
				return nil, false, err
			}
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("cancel order %s: %w", order.ID, err)
		}

		s.releaseLines(ctx, cancelled.ID, cancelled.Items, reason)
		s.invalidate(ctx, cancelled.Items)
		s.metrics.OrderTransitioned(string(domain.OrderCancelled))

		s.logger.Info("Order cancelled",
			zap.String("order_id", cancelled.ID.String()),
			zap.String("reason", reason),
		)

		return cancelled, true, nil
	}

	return nil, false, fmt.Errorf("cancel order %s: %w", order.ID, domain.ErrStatusChanged)
}

// RefundOrder moves a PAID order to REFUNDED, returns its units to sale and
// refunds its unused tickets. Refunds are order-level only.
func (s *OrderService) RefundOrder(ctx context.Context, orderID uuid.UUID, reason string) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch order.Status {
	case domain.OrderRefunded:
		return order, nil
	case domain.OrderPaid:
	default:
		return nil, domain.OrderConflict(order, domain.ErrOrderNotPaid)
	}

	refunded, err := s.orders.TransitionOrder(ctx, order.ID, domain.OrderTransition{
		From:             []domain.OrderStatus{domain.OrderPaid},
		To:               domain.OrderRefunded,
		At:               s.now(),
		Reason:           reason,
		ReleaseInventory: true,
	})
	if errors.Is(err, domain.ErrStatusChanged) {
		current, getErr := s.orders.GetOrder(ctx, order.ID)
		if getErr != nil {
			return nil, getErr
		}
		if current.Status == domain.OrderRefunded {
			return current, nil
		}
		return nil, domain.OrderConflict(current, domain.ErrOrderNotPaid)
	}
	if err != nil {
		return nil, fmt.Errorf("refund order %s: %w", order.ID, err)
	}

	if !order.InventoryReleased {
		s.releaseLines(ctx, refunded.ID, refunded.Items, "refund")
		s.invalidate(ctx, refunded.Items)
	}

	n, err := s.tickets.SetOrderTicketsStatus(ctx, refunded.ID, domain.TicketRefunded)
	if err != nil {
		s.logger.Error("Failed to refund tickets of refunded order",
			zap.String("order_id", refunded.ID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("refund tickets of order %s: %w", refunded.ID, err)
	}

	s.metrics.OrderTransitioned(string(domain.OrderRefunded))
	s.logger.Info("Order refunded",
		zap.String("order_id", refunded.ID.String()),
		zap.Int("tickets_refunded", n),
	)

	return refunded, nil
}

func (s *OrderService) GetOrder(ctx context.Context, buyer domain.Buyer, orderID uuid.UUID) (*domain.Order, error) {
	return s.ownedOrder(ctx, buyer, orderID)
}

func (s *OrderService) ListOrders(ctx context.Context, buyer domain.Buyer) ([]domain.Order, error) {
	return s.orders.ListOrdersByUser(ctx, buyer.UserID)
}

func (s *OrderService) ListTickets(ctx context.Context, buyer domain.Buyer) ([]domain.Ticket, error) {
	return s.tickets.ListTicketsByOwner(ctx, buyer.UserID)
}

func (s *OrderService) GetTicket(ctx context.Context, buyer domain.Buyer, ticketID uuid.UUID) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.OwnerID != buyer.UserID {
		return nil, domain.ErrTicketNotFound
	}
	return ticket, nil
}

// ownedOrder hides other users' orders behind ErrOrderNotFound.
func (s *OrderService) ownedOrder(ctx context.Context, buyer domain.Buyer, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.OwnedBy(buyer.UserID) {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) sessionOutcome(ctx context.Context, sessionID string) (*ports.SessionOutcome, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.PaymentTimeout)
	defer cancel()

	outcome, err := s.payments.GetSessionOutcome(callCtx, sessionID)
	if errors.Is(err, domain.ErrPaymentSessionNotFound) {
		// Nothing can be paid against a session the provider does not know.
		s.logger.Warn("Payment session unknown to provider",
			zap.String("session_id", sessionID),
		)
		return &ports.SessionOutcome{}, nil
	}
	if err != nil {
		s.logger.Warn("Payment session lookup failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return nil, externalError("get payment session outcome", err)
	}
	return outcome, nil
}

// releaseLines returns reserved units to the ledger. A failed release is not
// returned to the caller; it is logged as an inventory discrepancy.
func (s *OrderService) releaseLines(ctx context.Context, orderID uuid.UUID, lines []domain.LineItem, reason string) {
	releaseCtx := context.WithoutCancel(ctx)

	for _, line := range lines {
		if err := s.ledger.Release(releaseCtx, line.TicketTypeID, line.Quantity); err != nil {
			s.logger.Error("Inventory discrepancy: release failed",
				zap.String("order_id", orderID.String()),
				zap.String("ticket_type_id", line.TicketTypeID.String()),
				zap.Int("quantity", line.Quantity),
				zap.String("reason", reason),
				zap.Error(err),
			)
		}
	}
}

func (s *OrderService) invalidate(ctx context.Context, lines []domain.LineItem) {
	seen := make(map[uuid.UUID]bool)
	for _, line := range lines {
		if seen[line.EventID] {
			continue
		}
		seen[line.EventID] = true

		if err := s.cache.Invalidate(ctx, line.EventID); err != nil {
			s.logger.Warn("Failed to invalidate availability cache",
				zap.String("event_id", line.EventID.String()),
				zap.Error(err),
			)
		}
	}
}

func recordedSession(order *domain.Order) *ports.PaymentSession {
	session := &ports.PaymentSession{
		SessionID:   order.PaymentSessionID,
		RedirectURL: order.CheckoutURL,
	}
	if order.SessionExpiresAt != nil {
		session.ExpiresAt = *order.SessionExpiresAt
	}
	return session
}

func lineError(index int, ticketTypeID uuid.UUID, reason string, err error) *domain.ValidationError {
	return &domain.ValidationError{
		LineItem:     index,
		TicketTypeID: ticketTypeID.String(),
		Reason:       reason,
		Err:          err,
	}
}

func externalError(op string, err error) error {
	var ext *domain.ExternalDependencyError
	if errors.As(err, &ext) {
		return err
	}
	return &domain.ExternalDependencyError{Op: op, Err: err}
}

type noopNotifier struct{}

func (noopNotifier) OrderPaid(context.Context, *domain.Order, []domain.Ticket) error { return nil }

type noopCache struct{}

func (noopCache) GetEvent(context.Context, uuid.UUID) (*domain.Event, error) { return nil, nil }
func (noopCache) SetEvent(context.Context, *domain.Event) error              { return nil }
func (noopCache) Invalidate(context.Context, uuid.UUID) error                { return nil }
