package handler

import (
	"net/http"

	"github.com/srgjo27/ticket_marketplace/internal/core/domain"
	"github.com/srgjo27/ticket_marketplace/internal/core/services"
	"go.uber.org/zap"
)

type EventHandler struct {
	svc    *services.EventService
	logger *zap.Logger
}

func NewEventHandler(svc *services.EventService, logger *zap.Logger) *EventHandler {
	return &EventHandler{svc: svc, logger: logger}
}

// ListEvents serves the public catalog: published events only.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context(), domain.EventPublished)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	resp := make([]EventResponse, 0, len(events))
	for i := range events {
		resp = append(resp, newEventResponse(&events[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	event, err := h.svc.GetEvent(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	// Drafts are not part of the public catalog.
	if event.Status == domain.EventDraft {
		writeError(w, h.logger, r, domain.ErrEventNotFound)
		return
	}

	writeJSON(w, http.StatusOK, newEventResponse(event))
}

func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req services.CreateEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newEventResponse(event))
}

func (h *EventHandler) AddTicketType(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req services.AddTicketTypeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tt, err := h.svc.AddTicketType(r.Context(), eventID, req)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newTicketTypeResponse(*tt))
}

type changeStatusRequest struct {
	Status domain.EventStatus `json:"status"`
}

func (h *EventHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req changeStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	event, err := h.svc.ChangeStatus(r.Context(), eventID, req.Status)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newEventResponse(event))
}

type updateCapacityRequest struct {
	TotalQuantity int `json:"total_quantity"`
}

func (h *EventHandler) UpdateCapacity(w http.ResponseWriter, r *http.Request) {
	ticketTypeID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req updateCapacityRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tt, err := h.svc.UpdateCapacity(r.Context(), ticketTypeID, req.TotalQuantity)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newTicketTypeResponse(*tt))
}
