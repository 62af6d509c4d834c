package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/srgjo27/ticket_marketplace/internal/core/services"
	"go.uber.org/zap"
)

type TicketHandler struct {
	validator *services.TicketValidator
	logger    *zap.Logger
}

func NewTicketHandler(validator *services.TicketValidator, logger *zap.Logger) *TicketHandler {
	return &TicketHandler{validator: validator, logger: logger}
}

type validateRequest struct {
	Lookup  string     `json:"lookup"`
	EventID *uuid.UUID `json:"event_id,omitempty"`
}

// Validate redeems a ticket at the door. Rejections still carry the ticket
// when it was found, so staff can see whose it is.
func (h *TicketHandler) Validate(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req validateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ticket, err := h.validator.Validate(r.Context(), identity.Buyer.UserID.String(), req.Lookup, req.EventID)
	if err != nil {
		status, body := classify(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("Ticket validation failed", zap.String("lookup", req.Lookup), zap.Error(err))
		}
		if ticket != nil {
			body.Ticket = newTicketResponse(ticket)
		}
		writeJSON(w, status, body)
		return
	}

	writeJSON(w, http.StatusOK, newTicketResponse(ticket))
}
