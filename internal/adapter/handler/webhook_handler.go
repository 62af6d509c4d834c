package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/srgjo27/ticket_marketplace/internal/core/domain"
	"github.com/srgjo27/ticket_marketplace/internal/core/services"
	"go.uber.org/zap"
)

const (
	HeaderSignature = "X-Payment-Signature"

	eventSessionCompleted = "checkout.session.completed"
	eventSessionExpired   = "checkout.session.expired"
)

type webhookEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// WebhookHandler receives provider callbacks. Deliveries are retried by the
// provider until they get a 2xx, and replays are harmless.
type WebhookHandler struct {
	svc    *services.OrderService
	secret []byte
	logger *zap.Logger
}

func NewWebhookHandler(svc *services.OrderService, secret string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{svc: svc, secret: []byte(secret), logger: logger}
}

// Sign returns the signature header value for body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func (h *WebhookHandler) verify(header string, body []byte) bool {
	if len(h.secret) == 0 {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, "sha256="))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

func (h *WebhookHandler) Payment(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unreadable body"})
		return
	}
	if !h.verify(r.Header.Get(HeaderSignature), body) {
		h.logger.Warn("Webhook signature rejected", zap.String("remote_addr", r.RemoteAddr))
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid signature"})
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil || event.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid event"})
		return
	}

	var handle func(context.Context, string) (*domain.Order, error)
	switch event.Type {
	case eventSessionCompleted:
		handle = h.svc.ConfirmPayment
	case eventSessionExpired:
		handle = h.svc.ExpireSession
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	order, err := handle(r.Context(), event.SessionID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": string(order.Status)})
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrStateConflict):
		// Retrying cannot change the outcome, so acknowledge the delivery.
		h.logger.Warn("Webhook event not applied",
			zap.String("type", event.Type),
			zap.String("session_id", event.SessionID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
	default:
		writeError(w, h.logger, r, err)
	}
}

// SessionCompleter is the sandbox provider's manual payment hook.
type SessionCompleter interface {
	Complete(sessionID string) error
}

type SandboxHandler struct {
	sandbox SessionCompleter
	svc     *services.OrderService
	logger  *zap.Logger
}

func NewSandboxHandler(sandbox SessionCompleter, svc *services.OrderService, logger *zap.Logger) *SandboxHandler {
	return &SandboxHandler{sandbox: sandbox, svc: svc, logger: logger}
}

// Pay completes a sandbox session and confirms the order, standing in for the
// hosted checkout page and its webhook.
func (h *SandboxHandler) Pay(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	if err := h.sandbox.Complete(sessionID); err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}

	order, err := h.svc.ConfirmPayment(r.Context(), sessionID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newOrderResponse(order))
}
