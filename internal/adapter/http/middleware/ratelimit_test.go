package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/iho/loanledger/internal/infrastructure/metrics"
)

func TestRateLimiterPerIP(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	rl := NewRateLimiter(1, 1, m)
	h := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	do := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/fund", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := do("1.2.3.4:1000"); code != http.StatusOK {
		t.Fatalf("expected first request through, got %d", code)
	}
	if code := do("1.2.3.4:2000"); code != http.StatusTooManyRequests {
		t.Fatalf("expected same IP on another port to be throttled, got %d", code)
	}
	if code := do("5.6.7.8:1000"); code != http.StatusOK {
		t.Fatalf("expected other IP to pass, got %d", code)
	}

	if got := testutil.ToFloat64(m.RateLimitHits.WithLabelValues("1.2.3.4")); got != 1 {
		t.Fatalf("expected one rate limit hit, got %v", got)
	}
}

func TestGetIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "9.9.9.9, 10.0.0.1")
	if got := getIP(req); got != "9.9.9.9" {
		t.Fatalf("expected first forwarded address, got %s", got)
	}
}

func TestCleanupLimitersDropsIdle(t *testing.T) {
	rl := NewRateLimiter(10, 10, nil)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return start }
	rl.getLimiter("old")

	rl.now = func() time.Time { return start.Add(time.Hour) }
	rl.getLimiter("fresh")
	rl.CleanupLimiters(30 * time.Minute)

	if _, ok := rl.visitors["old"]; ok {
		t.Fatal("expected idle limiter to be removed")
	}
	if _, ok := rl.visitors["fresh"]; !ok {
		t.Fatal("expected recent limiter to remain")
	}
}
