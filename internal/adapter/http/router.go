package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/loanledger/internal/adapter/http/handler"
	"github.com/iho/loanledger/internal/adapter/http/middleware"
	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/infrastructure/metrics"
	"github.com/iho/loanledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	CustomerHandler       *handler.CustomerHandler
	LedgerHandler         *handler.LedgerHandler
	FundHandler           *handler.FundHandler
	ReconciliationHandler *handler.ReconciliationHandler
	HealthHandler         *handler.HealthHandler

	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration

	// Authenticator is nil when authentication is disabled.
	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter

	Metrics        *metrics.Metrics
	MetricsHandler http.Handler

	Logger zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	role := func(minRole domain.Role) func(http.Handler) http.Handler {
		if cfg.Authenticator == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return middleware.RequireRole(minRole)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Authenticator != nil {
			r.Use(cfg.Authenticator.Authenticate)
		}

		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger)
			r.Use(idempotencyMiddleware.Wrap)
		}

		r.Route("/customers", func(r chi.Router) {
			r.With(role(domain.RoleAdmin)).Post("/", cfg.CustomerHandler.Open)
			r.With(role(domain.RoleViewer)).Get("/", cfg.CustomerHandler.List)

			r.Route("/{accountNumber}", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(role(domain.RoleViewer))
					r.Get("/", cfg.CustomerHandler.Get)
					r.Get("/transactions", cfg.CustomerHandler.ListTransactions)
					r.Get("/reconciliation", cfg.ReconciliationHandler.Customer)
				})

				r.Group(func(r chi.Router) {
					r.Use(role(domain.RoleOperator))
					r.Post("/micro-deposits", cfg.LedgerHandler.SendMicroDeposit)
					r.Post("/micro-deposits/confirm", cfg.LedgerHandler.ConfirmMicroDeposit)
					r.Post("/loans/disburse", cfg.LedgerHandler.DisburseLoan)
					r.Post("/loans/repay", cfg.LedgerHandler.RepayLoan)
				})
			})
		})

		r.Route("/fund", func(r chi.Router) {
			r.With(role(domain.RoleViewer)).Get("/", cfg.FundHandler.Get)
			r.With(role(domain.RoleAdmin)).Post("/", cfg.FundHandler.Initialize)
		})

		r.With(role(domain.RoleViewer)).Get("/ledger/reconciliation", cfg.ReconciliationHandler.Report)
	})

	return r
}
