package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/srgjo27/ticket_marketplace/internal/core/domain"
	"github.com/srgjo27/ticket_marketplace/internal/core/ports"
	"github.com/srgjo27/ticket_marketplace/internal/platform/metrics"
	"go.uber.org/zap"
)

type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HTTPGateway talks to a hosted checkout provider over JSON. Every call is
// bounded by Timeout and guarded by a circuit breaker; failures surface as
// *domain.ExternalDependencyError.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewHTTPGateway(cfg HTTPConfig, logger *zap.Logger, m *metrics.Metrics) *HTTPGateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "PaymentProvider",
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		// A rejected request says nothing about the provider's health.
		IsSuccessful: func(err error) bool {
			var se *statusError
			return err == nil || (errors.As(err, &se) && se.code < http.StatusInternalServerError)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn(
				"Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &HTTPGateway{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
		cb:      gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
		metrics: m,
	}
}

type sessionLine struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type createSessionBody struct {
	OrderID    string          `json:"client_reference_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	LineItems  []sessionLine   `json:"line_items"`
	SuccessURL string          `json:"success_url"`
	CancelURL  string          `json:"cancel_url"`
	ExpiresAt  int64           `json:"expires_at"`
}

type sessionBody struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	ExpiresAt     int64  `json:"expires_at"`
	PaymentStatus string `json:"payment_status"`
	PaymentIntent string `json:"payment_intent"`
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("provider responded %d: %s", e.code, e.body)
}

func (g *HTTPGateway) CreateSession(ctx context.Context, req ports.CreateSessionRequest) (*ports.PaymentSession, error) {
	body := createSessionBody{
		OrderID:    req.OrderID,
		Amount:     req.Amount,
		Currency:   strings.ToLower(req.Currency),
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
		ExpiresAt:  req.ExpiresAt.Unix(),
	}
	for _, li := range req.LineItems {
		body.LineItems = append(body.LineItems, sessionLine{Name: li.Name, Quantity: li.Quantity, UnitPrice: li.UnitPrice})
	}

	start := time.Now()
	res, err := executeWithBreaker(g.cb, func() (*sessionBody, error) {
		// The order id doubles as idempotency key so a retried create
		// returns the provider's existing session.
		return g.do(ctx, http.MethodPost, "/v1/checkout/sessions", req.OrderID, body)
	})
	g.metrics.PaymentCall("create_session", err, time.Since(start))
	if err != nil {
		return nil, g.fail("create checkout session", err)
	}

	return &ports.PaymentSession{
		SessionID:   res.ID,
		RedirectURL: res.URL,
		ExpiresAt:   time.Unix(res.ExpiresAt, 0).UTC(),
	}, nil
}

func (g *HTTPGateway) GetSessionOutcome(ctx context.Context, sessionID string) (*ports.SessionOutcome, error) {
	start := time.Now()
	res, err := executeWithBreaker(g.cb, func() (*sessionBody, error) {
		return g.do(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(sessionID), "", nil)
	})
	g.metrics.PaymentCall("get_session", err, time.Since(start))
	var se *statusError
	if errors.As(err, &se) && se.code == http.StatusNotFound {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrPaymentSessionNotFound)
	}
	if err != nil {
		return nil, g.fail("get checkout session", err)
	}

	return &ports.SessionOutcome{
		Paid:       res.PaymentStatus == "paid",
		PaymentRef: res.PaymentIntent,
	}, nil
}

func (g *HTTPGateway) do(ctx context.Context, method, path, idempotencyKey string, payload any) (*sessionBody, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(msg))}
	}

	var out sessionBody
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}

	return &out, nil
}

func (g *HTTPGateway) fail(op string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		g.logger.Warn("Circuit breaker open", zap.String("op", op))
	} else {
		g.logger.Warn("Payment provider call failed", zap.String("op", op), zap.Error(err))
	}

	return &domain.ExternalDependencyError{Op: op, Err: err}
}
