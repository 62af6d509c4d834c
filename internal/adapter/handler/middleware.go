package handler

import (
	"context"
	"crypto/subtle"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/ticket_marketplace/internal/core/domain"
	"go.uber.org/zap"
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"
	HeaderUserRole  = "X-User-Role"

	// HeaderGatewayToken proves the identity headers came from the gateway.
	HeaderGatewayToken = "X-Gateway-Token"
)

const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
	RoleAdmin    = "admin"
)

type ctxKey struct{}

// Identity is the caller as asserted by the upstream gateway.
type Identity struct {
	Buyer domain.Buyer
	Role  string
}

func identityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// Authenticate trusts the identity headers set by the gateway in front of
// the service and rejects requests that lack them. When gatewayToken is set,
// requests must also carry it.
func Authenticate(gatewayToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return authenticate(gatewayToken, next)
	}
}

func authenticate(gatewayToken string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gatewayToken != "" &&
			subtle.ConstantTimeCompare([]byte(r.Header.Get(HeaderGatewayToken)), []byte(gatewayToken)) != 1 {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "untrusted caller"})
			return
		}

		userID, err := uuid.Parse(r.Header.Get(HeaderUserID))
		if err != nil || userID == uuid.Nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing or invalid user identity"})
			return
		}

		role := r.Header.Get(HeaderUserRole)
		if role == "" {
			role = RoleCustomer
		}
		if !slices.Contains([]string{RoleCustomer, RoleStaff, RoleAdmin}, role) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unknown role"})
			return
		}

		identity := Identity{
			Buyer: domain.Buyer{UserID: userID, Email: r.Header.Get(HeaderUserEmail)},
			Role:  role,
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, identity)))
	})
}

// RequireRole must run after Authenticate.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := identityFrom(r.Context())
			if !ok {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing or invalid user identity"})
				return
			}
			if !slices.Contains(roles, identity.Role) {
				writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Logging records one line per request and turns panics into a 500.
func Logging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			defer func() {
				if p := recover(); p != nil {
					logger.Error("Panic while serving request",
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.Any("panic", p),
						zap.Stack("stack"),
					)
					writeJSON(rec, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
				}

				logger.Info("Request served",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", rec.status),
					zap.Duration("took", time.Since(start)),
				)
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
