package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

type RouterConfig struct {
	Events   *EventHandler
	Orders   *OrderHandler
	Tickets  *TicketHandler
	Webhooks *WebhookHandler
	// Sandbox is nil unless the sandbox payment provider is active.
	Sandbox  *SandboxHandler
	Gatherer prometheus.Gatherer
	Checks   map[string]HealthCheck
	Logger   *zap.Logger

	// GatewayToken, when set, must accompany the identity headers.
	GatewayToken string
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	authenticate := Authenticate(cfg.GatewayToken)
	authed := func(h http.HandlerFunc) http.Handler {
		return authenticate(h)
	}
	withRole := func(h http.HandlerFunc, roles ...string) http.Handler {
		return authenticate(RequireRole(roles...)(h))
	}

	mux.HandleFunc("GET /events", cfg.Events.ListEvents)
	mux.HandleFunc("GET /events/{id}", cfg.Events.GetEvent)

	mux.Handle("POST /admin/events", withRole(cfg.Events.CreateEvent, RoleAdmin))
	mux.Handle("POST /admin/events/{id}/ticket-types", withRole(cfg.Events.AddTicketType, RoleAdmin))
	mux.Handle("PATCH /admin/events/{id}/status", withRole(cfg.Events.ChangeStatus, RoleAdmin))
	mux.Handle("PATCH /admin/ticket-types/{id}/capacity", withRole(cfg.Events.UpdateCapacity, RoleAdmin))
	mux.Handle("POST /admin/orders/{id}/refund", withRole(cfg.Orders.Refund, RoleAdmin))

	mux.Handle("POST /orders", authed(cfg.Orders.CreateOrder))
	mux.Handle("GET /orders", authed(cfg.Orders.ListOrders))
	mux.Handle("POST /orders/confirm", authed(cfg.Orders.Confirm))
	mux.Handle("GET /orders/{id}", authed(cfg.Orders.GetOrder))
	mux.Handle("POST /orders/{id}/checkout", authed(cfg.Orders.Checkout))
	mux.Handle("POST /orders/{id}/cancel", authed(cfg.Orders.Cancel))

	mux.Handle("GET /tickets", authed(cfg.Orders.ListTickets))
	mux.Handle("GET /tickets/{id}", authed(cfg.Orders.GetTicket))
	mux.Handle("POST /tickets/validate", withRole(cfg.Tickets.Validate, RoleStaff, RoleAdmin))

	mux.HandleFunc("POST /webhooks/payment", cfg.Webhooks.Payment)
	if cfg.Sandbox != nil {
		mux.HandleFunc("POST /sandbox/sessions/{id}/pay", cfg.Sandbox.Pay)
	}

	mux.HandleFunc("GET /healthz", healthz(cfg.Checks))
	if cfg.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	return Logging(cfg.Logger)(mux)
}

func healthz(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		report := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				report[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			report[name] = "ok"
		}

		writeJSON(w, status, report)
	}
}
