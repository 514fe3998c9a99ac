package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/infrastructure/auth"
	"github.com/iho/loanledger/internal/infrastructure/logger"
	"github.com/iho/loanledger/internal/infrastructure/metrics"
)

// Authenticator verifies bearer tokens and records failures.
type Authenticator struct {
	jwtManager *auth.JWTManager
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewAuthenticator creates an Authenticator. m may be nil.
func NewAuthenticator(jwtManager *auth.JWTManager, m *metrics.Metrics, log zerolog.Logger) *Authenticator {
	return &Authenticator{jwtManager: jwtManager, metrics: m, logger: log}
}

// Authenticate rejects requests without a valid bearer token and stores the
// caller's principal in the request context.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			a.fail(w, r, "missing", "missing authorization header")
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			a.fail(w, r, "malformed", "invalid authorization header format")
			return
		}

		claims, err := a.jwtManager.Verify(token)
		if err != nil {
			reason := "invalid"
			if errors.Is(err, domain.ErrExpiredToken) {
				reason = "expired"
			}
			a.fail(w, r, reason, "invalid or expired token")
			return
		}

		ctx := domain.ContextWithPrincipal(r.Context(), claims.Principal())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) fail(w http.ResponseWriter, r *http.Request, reason, message string) {
	if a.metrics != nil {
		a.metrics.AuthFailures.WithLabelValues(reason).Inc()
	}
	log := logger.WithContext(r.Context(), a.logger)
	log.Warn().
		Str("reason", reason).
		Str("path", r.URL.Path).
		Msg("authentication failed")
	writeError(w, http.StatusUnauthorized, message)
}

// RequireRole rejects callers whose role ranks below minRole.
func RequireRole(minRole domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := domain.PrincipalFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, domain.ErrUnauthorized.Error())
				return
			}

			if !p.Role.Allows(minRole) {
				writeError(w, http.StatusForbidden, domain.ErrInsufficientRole.Error())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
