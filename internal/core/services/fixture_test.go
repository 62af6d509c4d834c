package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/srgjo27/ticket_marketplace/internal/adapter/repository/memory"
	"github.com/srgjo27/ticket_marketplace/internal/core/domain"
	"github.com/srgjo27/ticket_marketplace/internal/core/ports"
	"github.com/srgjo27/ticket_marketplace/internal/core/ports/mocks"
	"github.com/srgjo27/ticket_marketplace/internal/core/services"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testCodeKey = "test-ticket-code-key-0123456789"

type fixture struct {
	store     *memory.Store
	payments  *mocks.PaymentGateway
	notifier  *mocks.Notifier
	signer    *services.CodeSigner
	orders    *services.OrderService
	validator *services.TicketValidator
	eventID   uuid.UUID
	typeID    uuid.UUID
	buyer     domain.Buyer
}

func newFixture(t *testing.T, available int) *fixture {
	t.Helper()

	f := &fixture{
		store:    memory.NewStore(),
		payments: mocks.NewPaymentGateway(t),
		notifier: mocks.NewNotifier(t),
		buyer:    domain.Buyer{UserID: uuid.New(), Email: "buyer@example.com"},
	}

	signer, err := services.NewCodeSigner(testCodeKey)
	require.NoError(t, err)
	f.signer = signer

	logger := zap.NewNop()
	issuer := services.NewTicketIssuer(f.store, f.store, signer, logger, nil)

	f.orders = services.NewOrderService(services.OrderDeps{
		Events:   f.store,
		Ledger:   f.store,
		Orders:   f.store,
		Tickets:  f.store,
		Payments: f.payments,
		Issuer:   issuer,
		Notifier: f.notifier,
		Logger:   logger,
	}, services.OrderConfig{
		SessionTTL:     30 * time.Minute,
		PaymentTimeout: time.Second,
	})
	// Runs before the mocks assert their expectations.
	t.Cleanup(f.orders.Wait)

	f.validator = services.NewTicketValidator(f.store, logger, nil)

	f.eventID = uuid.New()
	require.NoError(t, f.store.CreateEvent(context.Background(), &domain.Event{
		ID:       f.eventID,
		Title:    "Jazz Night",
		Venue:    "Main Hall",
		StartsAt: time.Now().Add(72 * time.Hour),
		EndsAt:   time.Now().Add(75 * time.Hour),
		Status:   domain.EventPublished,
	}))
	f.typeID = f.addType(t, "Regular", available, 1500, "USD")

	return f
}

func (f *fixture) addType(t *testing.T, name string, available int, price int64, currency string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	require.NoError(t, f.store.AddTicketType(context.Background(), &domain.TicketType{
		ID:                id,
		EventID:           f.eventID,
		Name:              name,
		UnitPrice:         decimal.NewFromInt(price),
		Currency:          currency,
		TotalQuantity:     available,
		AvailableQuantity: available,
	}))
	return id
}

func (f *fixture) available(t *testing.T, typeID uuid.UUID) int {
	t.Helper()

	tt, err := f.store.GetTicketType(context.Background(), typeID)
	require.NoError(t, err)
	require.NoError(t, tt.CheckInvariant())
	return tt.AvailableQuantity
}

func (f *fixture) cart(typeID uuid.UUID, quantity int) services.CreateOrderRequest {
	return services.CreateOrderRequest{
		Items: []services.CartItem{{TicketTypeID: typeID, Quantity: quantity}},
		Attendee: services.AttendeeInfo{
			Name:  "Ada Lovelace",
			Email: "ada@example.com",
		},
	}
}

// paidOrder creates an order, moves it through checkout and confirms it.
func (f *fixture) paidOrder(t *testing.T, quantity int) *domain.Order {
	t.Helper()
	ctx := context.Background()

	order, err := f.orders.CreateOrder(ctx, f.buyer, f.cart(f.typeID, quantity))
	require.NoError(t, err)

	sessionID := "cs_" + order.ID.String()
	f.payments.On("CreateSession", matchAny, matchOrder(order.ID)).
		Return(&ports.PaymentSession{SessionID: sessionID, RedirectURL: "https://pay.test/" + sessionID}, nil).Once()
	f.payments.On("GetSessionOutcome", matchAny, sessionID).
		Return(&ports.SessionOutcome{Paid: true, PaymentRef: "pi_" + sessionID}, nil).Once()
	f.notifier.On("OrderPaid", matchAny, matchOrderPtr(order.ID), matchTickets(quantity)).Return(nil).Once()

	_, err = f.orders.BeginCheckout(ctx, f.buyer, order.ID)
	require.NoError(t, err)

	paid, err := f.orders.ConfirmPayment(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderPaid, paid.Status)

	return paid
}

var matchAny = mock.Anything

func matchOrder(id uuid.UUID) any {
	return mock.MatchedBy(func(req ports.CreateSessionRequest) bool { return req.OrderID == id.String() })
}

func matchOrderPtr(id uuid.UUID) any {
	return mock.MatchedBy(func(o *domain.Order) bool { return o.ID == id })
}

func matchTickets(n int) any {
	return mock.MatchedBy(func(tickets []domain.Ticket) bool { return len(tickets) == n })
}
