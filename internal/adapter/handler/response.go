package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/ticket_marketplace/internal/core/domain"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error         string     `json:"error"`
	LineItem      *int       `json:"line_item,omitempty"`
	TicketTypeID  string     `json:"ticket_type_id,omitempty"`
	CurrentStatus string     `json:"current_status,omitempty"`
	UsedAt        *time.Time `json:"used_at,omitempty"`
	UsedBy        string     `json:"used_by,omitempty"`
	Ticket        any        `json:"ticket,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

// classify maps a service error onto a status code and a body the client can
// act on. Unknown errors never leak their message.
func classify(err error) (int, errorResponse) {
	var validation *domain.ValidationError
	var conflict *domain.StateConflictError

	switch {
	case errors.As(err, &validation):
		body := errorResponse{Error: validation.Error(), TicketTypeID: validation.TicketTypeID}
		if validation.LineItem >= 0 {
			line := validation.LineItem
			body.LineItem = &line
		}
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, domain.ErrEventNotFound),
		errors.Is(err, domain.ErrTicketTypeNotFound),
		errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrTicketNotFound):
		return http.StatusNotFound, errorResponse{Error: err.Error()}
	case errors.As(err, &conflict):
		return http.StatusConflict, errorResponse{
			Error:         conflict.Err.Error(),
			CurrentStatus: conflict.Current,
			UsedAt:        conflict.UsedAt,
			UsedBy:        conflict.UsedBy,
		}
	case errors.Is(err, domain.ErrPaymentNotConfirmed):
		return http.StatusPaymentRequired, errorResponse{Error: "payment not confirmed yet"}
	case errors.Is(err, domain.ErrExternalDependency):
		return http.StatusServiceUnavailable, errorResponse{Error: "upstream unavailable, try again"}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, r *http.Request, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	writeJSON(w, status, body)
}
