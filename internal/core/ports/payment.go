package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type SessionLineItem struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

type CreateSessionRequest struct {
	OrderID    string
	Amount     decimal.Decimal
	Currency   string
	LineItems  []SessionLineItem
	SuccessURL string
	CancelURL  string
	ExpiresAt  time.Time
}

type PaymentSession struct {
	SessionID   string
	RedirectURL string
	ExpiresAt   time.Time
}

type SessionOutcome struct {
	Paid       bool
	PaymentRef string
}

// PaymentGateway is the checkout handoff to an external payment provider.
// Implementations return *domain.ExternalDependencyError for transport
// failures and timeouts.
type PaymentGateway interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (*PaymentSession, error)
	// GetSessionOutcome fails with domain.ErrPaymentSessionNotFound when the
	// provider has no record of the session.
	GetSessionOutcome(ctx context.Context, sessionID string) (*SessionOutcome, error)
}
