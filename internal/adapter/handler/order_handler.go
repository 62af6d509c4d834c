package handler

import (
	"net/http"

	"github.com/srgjo27/ticket_marketplace/internal/core/services"
	"go.uber.org/zap"
)

type OrderHandler struct {
	svc    *services.OrderService
	logger *zap.Logger
}

func NewOrderHandler(svc *services.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, logger: logger}
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req services.CreateOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.svc.CreateOrder(r.Context(), identity.Buyer, req)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newOrderResponse(order))
}

func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	orders, err := h.svc.ListOrders(r.Context(), identity.Buyer)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	resp := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, newOrderResponse(&orders[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())
	orderID, ok := pathID(w, r)
	if !ok {
		return
	}

	order, err := h.svc.GetOrder(r.Context(), identity.Buyer, orderID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newOrderResponse(order))
}

func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())
	orderID, ok := pathID(w, r)
	if !ok {
		return
	}

	session, err := h.svc.BeginCheckout(r.Context(), identity.Buyer, orderID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newCheckoutResponse(session))
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())
	orderID, ok := pathID(w, r)
	if !ok {
		return
	}

	order, err := h.svc.CancelOrder(r.Context(), identity.Buyer, orderID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newOrderResponse(order))
}

type confirmRequest struct {
	SessionID string `json:"session_id"`
}

// Confirm is the buyer's return from the provider's hosted checkout.
func (h *OrderHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req confirmRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.svc.ConfirmPayment(r.Context(), req.SessionID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	if !order.OwnedBy(identity.Buyer.UserID) {
		// The payment is recorded regardless; only the order details are hidden.
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "confirmed"})
		return
	}

	writeJSON(w, http.StatusOK, newOrderResponse(order))
}

type refundRequest struct {
	Reason string `json:"reason"`
}

func (h *OrderHandler) Refund(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req refundRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	if req.Reason == "" {
		req.Reason = "refunded by admin"
	}

	order, err := h.svc.RefundOrder(r.Context(), orderID, req.Reason)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newOrderResponse(order))
}

func (h *OrderHandler) ListTickets(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	tickets, err := h.svc.ListTickets(r.Context(), identity.Buyer)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	resp := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		resp = append(resp, newTicketResponse(&tickets[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())
	ticketID, ok := pathID(w, r)
	if !ok {
		return
	}

	ticket, err := h.svc.GetTicket(r.Context(), identity.Buyer, ticketID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newTicketResponse(ticket))
}
