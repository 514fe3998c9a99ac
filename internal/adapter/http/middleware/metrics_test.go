package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/iho/loanledger/internal/infrastructure/metrics"
)

func TestMetricsMiddlewareUsesRoutePattern(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Post("/api/v1/customers/{accountNumber}/loans/repay", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	for _, acct := range []string{"ACC-1", "ACC-2"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/customers/"+acct+"/loans/repay", nil))
	}

	counter := m.HTTPRequests.WithLabelValues(http.MethodPost, "/api/v1/customers/{accountNumber}/loans/repay", "201")
	if got := testutil.ToFloat64(counter); got != 2 {
		t.Fatalf("expected both requests under one pattern, got %v", got)
	}
}

func TestMetricsMiddlewareUnmatchedRoute(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/customers/ACC-9/unknown", nil))

	counter := m.HTTPRequests.WithLabelValues(http.MethodGet, "/api/v1/customers/{accountNumber}/unknown", "404")
	if got := testutil.ToFloat64(counter); got != 1 {
		t.Fatalf("expected normalized 404 to be counted, got %v", got)
	}
}

func TestNormalizePath(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "customer path without suffix",
			input:    "/api/v1/customers/ABC123",
			expected: "/api/v1/customers/{accountNumber}",
		},
		{
			name:     "customer path with suffix",
			input:    "/api/v1/customers/ABC123/micro-deposits/confirm",
			expected: "/api/v1/customers/{accountNumber}/micro-deposits/confirm",
		},
		{
			name:     "collection path",
			input:    "/api/v1/customers/",
			expected: "/api/v1/customers/",
		},
		{
			name:     "non-matching path",
			input:    "/api/v1/fund",
			expected: "/api/v1/fund",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := normalizePath(tc.input); got != tc.expected {
				t.Fatalf("normalizePath(%q) = %q, expected %q", tc.input, got, tc.expected)
			}
		})
	}
}
