package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/srgjo27/ticket_marketplace/internal/adapter/handler"
	"github.com/srgjo27/ticket_marketplace/internal/adapter/notifier"
	"github.com/srgjo27/ticket_marketplace/internal/adapter/payment"
	"github.com/srgjo27/ticket_marketplace/internal/adapter/repository/memory"
	"github.com/srgjo27/ticket_marketplace/internal/core/services"
	"github.com/srgjo27/ticket_marketplace/internal/platform/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const webhookSecret = "whsec_test"

type api struct {
	t       *testing.T
	router  http.Handler
	sandbox *payment.Sandbox
	admin   uuid.UUID
	staff   uuid.UUID
	buyer   uuid.UUID
}

func newAPI(t *testing.T, checks map[string]handler.HealthCheck) *api {
	t.Helper()

	logger := zap.NewNop()
	store := memory.NewStore()
	sandbox := payment.NewSandbox("http://localhost:8080")
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	signer, err := services.NewCodeSigner("handler-test-code-key-0123456789")
	require.NoError(t, err)

	orders := services.NewOrderService(services.OrderDeps{
		Events:   store,
		Ledger:   store,
		Orders:   store,
		Tickets:  store,
		Payments: sandbox,
		Issuer:   services.NewTicketIssuer(store, store, signer, logger, m),
		Notifier: notifier.NewLogNotifier(logger),
		Logger:   logger,
		Metrics:  m,
	}, services.OrderConfig{})
	t.Cleanup(orders.Wait)

	router := handler.NewRouter(handler.RouterConfig{
		Events:   handler.NewEventHandler(services.NewEventService(store, nil, logger), logger),
		Orders:   handler.NewOrderHandler(orders, logger),
		Tickets:  handler.NewTicketHandler(services.NewTicketValidator(store, logger, m), logger),
		Webhooks: handler.NewWebhookHandler(orders, webhookSecret, logger),
		Sandbox:  handler.NewSandboxHandler(sandbox, orders, logger),
		Gatherer: reg,
		Checks:   checks,
		Logger:   logger,
	})

	return &api{t: t, router: router, sandbox: sandbox, admin: uuid.New(), staff: uuid.New(), buyer: uuid.New()}
}

func (a *api) do(method, path string, user uuid.UUID, role string, body any) *httptest.ResponseRecorder {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if user != uuid.Nil {
		req.Header.Set(handler.HeaderUserID, user.String())
		req.Header.Set(handler.HeaderUserEmail, "someone@example.com")
		req.Header.Set(handler.HeaderUserRole, role)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// publishedEvent creates a published event with one ticket type through the
// admin API and returns the ticket type id.
func (a *api) publishedEvent(total int) (eventID, ticketTypeID string) {
	a.t.Helper()

	start := time.Now().Add(7 * 24 * time.Hour).UTC().Truncate(time.Second)
	rec := a.do(http.MethodPost, "/admin/events", a.admin, handler.RoleAdmin, map[string]any{
		"title": "Symphony No. 9", "venue": "Concert Hall",
		"starts_at": start, "ends_at": start.Add(2 * time.Hour), "capacity": total,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	event := decode[handler.EventResponse](a.t, rec)

	rec = a.do(http.MethodPost, "/admin/events/"+event.ID+"/ticket-types", a.admin, handler.RoleAdmin, map[string]any{
		"name": "Balcony", "unit_price": "25.00", "currency": "usd", "total_quantity": total,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	tt := decode[handler.TicketTypeResponse](a.t, rec)

	rec = a.do(http.MethodPatch, "/admin/events/"+event.ID+"/status", a.admin, handler.RoleAdmin, map[string]any{"status": "PUBLISHED"})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())

	return event.ID, tt.ID
}

func (a *api) order(ticketTypeID string, quantity int) *httptest.ResponseRecorder {
	return a.do(http.MethodPost, "/orders", a.buyer, handler.RoleCustomer, map[string]any{
		"items":    []map[string]any{{"ticket_type_id": ticketTypeID, "quantity": quantity}},
		"attendee": map[string]any{"name": "Ada Lovelace", "email": "ada@example.com"},
	})
}

func TestPurchaseAndRedeemFlow(t *testing.T) {
	a := newAPI(t, nil)
	eventID, typeID := a.publishedEvent(10)

	rec := a.order(typeID, 2)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[handler.OrderResponse](t, rec)
	assert.Equal(t, "PENDING", order.Status)
	assert.Equal(t, "50", order.TotalAmount.String())

	rec = a.do(http.MethodGet, "/events/"+eventID, uuid.Nil, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 8, decode[handler.EventResponse](t, rec).TicketTypes[0].AvailableQuantity)

	rec = a.do(http.MethodPost, "/orders/"+order.ID+"/checkout", a.buyer, handler.RoleCustomer, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	session := decode[handler.CheckoutResponse](t, rec)
	assert.Contains(t, session.RedirectURL, "/sandbox/sessions/"+session.SessionID+"/pay")

	rec = a.do(http.MethodPost, "/orders/confirm", a.buyer, handler.RoleCustomer, map[string]any{"session_id": session.SessionID})
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	rec = a.do(http.MethodPost, "/sandbox/sessions/"+session.SessionID+"/pay", uuid.Nil, "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "PAID", decode[handler.OrderResponse](t, rec).Status)

	rec = a.do(http.MethodGet, "/tickets", a.buyer, handler.RoleCustomer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tickets := decode[[]handler.TicketResponse](t, rec)
	require.Len(t, tickets, 2)

	rec = a.do(http.MethodPost, "/tickets/validate", a.buyer, handler.RoleCustomer, map[string]any{"lookup": tickets[0].Number})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodPost, "/tickets/validate", a.staff, handler.RoleStaff, map[string]any{"lookup": tickets[0].Code, "event_id": eventID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "USED", decode[handler.TicketResponse](t, rec).Status)

	rec = a.do(http.MethodPost, "/tickets/validate", a.staff, handler.RoleStaff, map[string]any{"lookup": tickets[0].Number})
	require.Equal(t, http.StatusConflict, rec.Code)
	conflict := decode[map[string]any](t, rec)
	assert.Equal(t, "USED", conflict["current_status"])
	assert.Equal(t, a.staff.String(), conflict["used_by"])
	assert.NotEmpty(t, conflict["used_at"])
	assert.NotNil(t, conflict["ticket"])

	rec = a.do(http.MethodPost, "/admin/orders/"+order.ID+"/refund", a.admin, handler.RoleAdmin, map[string]any{"reason": "show moved"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "REFUNDED", decode[handler.OrderResponse](t, rec).Status)
}

func TestAuthentication(t *testing.T) {
	a := newAPI(t, nil)

	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/orders", uuid.Nil, "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/orders", a.buyer, "superuser", nil).Code)
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/admin/events", a.buyer, handler.RoleCustomer, map[string]any{}).Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/orders", a.buyer, "", nil).Code)
}

func TestCreateOrder_Errors(t *testing.T) {
	a := newAPI(t, nil)
	_, typeID := a.publishedEvent(3)

	rec := a.order(typeID, 4)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, float64(0), body["line_item"])
	assert.Equal(t, typeID, body["ticket_type_id"])

	rec = a.order(uuid.NewString(), 1)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = a.do(http.MethodPost, "/orders", a.buyer, handler.RoleCustomer, "not an order")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodGet, "/orders/not-a-uuid", a.buyer, handler.RoleCustomer, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodGet, "/orders/"+uuid.NewString(), a.buyer, handler.RoleCustomer, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelOrder(t *testing.T) {
	a := newAPI(t, nil)
	_, typeID := a.publishedEvent(5)
	order := decode[handler.OrderResponse](t, a.order(typeID, 2))

	other := a.do(http.MethodPost, "/orders/"+order.ID+"/cancel", uuid.New(), handler.RoleCustomer, nil)
	assert.Equal(t, http.StatusNotFound, other.Code)

	rec := a.do(http.MethodPost, "/orders/"+order.ID+"/cancel", a.buyer, handler.RoleCustomer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CANCELLED", decode[handler.OrderResponse](t, rec).Status)

	rec = a.do(http.MethodPost, "/orders/"+order.ID+"/checkout", a.buyer, handler.RoleCustomer, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CANCELLED", decode[map[string]any](t, rec)["current_status"])
}

func webhook(a *api, payload map[string]string, signature string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	if signature == "" {
		signature = handler.Sign([]byte(webhookSecret), body)
	}

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(body))
	req.Header.Set(handler.HeaderSignature, signature)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func TestPaymentWebhook(t *testing.T) {
	a := newAPI(t, nil)
	_, typeID := a.publishedEvent(5)

	checkout := func() string {
		order := decode[handler.OrderResponse](t, a.order(typeID, 1))
		rec := a.do(http.MethodPost, "/orders/"+order.ID+"/checkout", a.buyer, handler.RoleCustomer, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		return decode[handler.CheckoutResponse](t, rec).SessionID
	}

	paid := checkout()
	require.NoError(t, a.sandbox.Complete(paid))

	rec := webhook(a, map[string]string{"type": "checkout.session.completed", "session_id": paid}, "sha256=deadbeef")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	for i := 0; i < 2; i++ {
		rec = webhook(a, map[string]string{"type": "checkout.session.completed", "session_id": paid}, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "PAID", decode[map[string]string](t, rec)["status"])
	}

	expired := checkout()
	rec = webhook(a, map[string]string{"type": "checkout.session.expired", "session_id": expired}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CANCELLED", decode[map[string]string](t, rec)["status"])

	rec = webhook(a, map[string]string{"type": "checkout.session.completed", "session_id": expired}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ignored", decode[map[string]string](t, rec)["status"])

	rec = webhook(a, map[string]string{"type": "charge.refunded", "session_id": paid}, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	unpaid := checkout()
	rec = webhook(a, map[string]string{"type": "checkout.session.completed", "session_id": unpaid}, "")
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
}

func TestHealthzAndMetrics(t *testing.T) {
	a := newAPI(t, map[string]handler.HealthCheck{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("dial tcp: connection refused") },
	})

	rec := a.do(http.MethodGet, "/healthz", uuid.Nil, "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	report := decode[map[string]string](t, rec)
	assert.Equal(t, "ok", report["postgres"])
	assert.Contains(t, report["redis"], "connection refused")

	_, typeID := a.publishedEvent(2)
	a.order(typeID, 1)

	rec = a.do(http.MethodGet, "/metrics", uuid.Nil, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `inventory_reservations_total{result="ok"} 1`)
}

func TestGatewayToken(t *testing.T) {
	logger := zap.NewNop()
	store := memory.NewStore()
	orders := services.NewOrderService(services.OrderDeps{
		Events: store, Ledger: store, Orders: store, Tickets: store, Logger: logger,
	}, services.OrderConfig{})

	router := handler.NewRouter(handler.RouterConfig{
		Events:       handler.NewEventHandler(services.NewEventService(store, nil, logger), logger),
		Orders:       handler.NewOrderHandler(orders, logger),
		Tickets:      handler.NewTicketHandler(services.NewTicketValidator(store, logger, nil), logger),
		Webhooks:     handler.NewWebhookHandler(orders, webhookSecret, logger),
		Logger:       logger,
		GatewayToken: "gw-secret",
	})

	send := func(token string) int {
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set(handler.HeaderUserID, uuid.NewString())
		if token != "" {
			req.Header.Set(handler.HeaderGatewayToken, token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, send(""))
	assert.Equal(t, http.StatusUnauthorized, send("guess"))
	assert.Equal(t, http.StatusOK, send("gw-secret"))
}
