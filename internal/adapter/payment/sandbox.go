package payment

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"github.com/srgjo27/ticket_marketplace/internal/core/domain"
	"github.com/srgjo27/ticket_marketplace/internal/core/ports"
)

var ErrUnknownSession = fmt.Errorf("sandbox: %w", domain.ErrPaymentSessionNotFound)

type sandboxSession struct {
	orderID    string
	expiresAt  time.Time
	paid       bool
	paymentRef string
}

// Sandbox is an in-process checkout provider for local runs. Sessions stay
// open until Complete marks them paid.
type Sandbox struct {
	baseURL string

	mu       sync.Mutex
	sessions map[string]*sandboxSession
}

func NewSandbox(baseURL string) *Sandbox {
	return &Sandbox{
		baseURL:  strings.TrimRight(baseURL, "/"),
		sessions: make(map[string]*sandboxSession),
	}
}

func (s *Sandbox) CreateSession(_ context.Context, req ports.CreateSessionRequest) (*ports.PaymentSession, error) {
	id, err := randomID("cs_sandbox_")
	if err != nil {
		return nil, &domain.ExternalDependencyError{Op: "create checkout session", Err: err}
	}

	s.mu.Lock()
	s.sessions[id] = &sandboxSession{orderID: req.OrderID, expiresAt: req.ExpiresAt}
	s.mu.Unlock()

	return &ports.PaymentSession{
		SessionID:   id,
		RedirectURL: fmt.Sprintf("%s/sandbox/sessions/%s/pay", s.baseURL, id),
		ExpiresAt:   req.ExpiresAt,
	}, nil
}

func (s *Sandbox) GetSessionOutcome(_ context.Context, sessionID string) (*ports.SessionOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		// Sessions live in memory, so a restart forgets every open one.
		return nil, ErrUnknownSession
	}

	return &ports.SessionOutcome{Paid: session.paid, PaymentRef: session.paymentRef}, nil
}

// Complete pays the session. Completing a paid session is a no-op.
func (s *Sandbox) Complete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return ErrUnknownSession
	}
	if session.paid {
		return nil
	}

	ref, err := randomID("pi_sandbox_")
	if err != nil {
		return err
	}
	session.paid = true
	session.paymentRef = ref

	return nil
}

func randomID(prefix string) (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return prefix + base58.Encode(buf), nil
}
