package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/loanledger/internal/infrastructure/logger"
	"github.com/iho/loanledger/internal/usecase"
)

const (
	// IdempotencyKeyHeader is the header name for idempotency keys.
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotencyReplayHeader marks a response served from the store.
	IdempotencyReplayHeader = "X-Idempotency-Replay"
)

// cachedResponse is what gets stored under an idempotency key.
type cachedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// IdempotencyMiddleware replays the first successful response for a repeated
// Idempotency-Key on mutating requests.
type IdempotencyMiddleware struct {
	store  usecase.IdempotencyStore
	ttl    time.Duration
	logger zerolog.Logger
}

// NewIdempotencyMiddleware creates a new IdempotencyMiddleware. A zero ttl
// uses usecase.IdempotencyKeyTTL.
func NewIdempotencyMiddleware(store usecase.IdempotencyStore, ttl time.Duration, log zerolog.Logger) *IdempotencyMiddleware {
	if ttl <= 0 {
		ttl = usecase.IdempotencyKeyTTL
	}
	return &IdempotencyMiddleware{store: store, ttl: ttl, logger: log}
}

// Wrap wraps an http.Handler with idempotency checking.
func (m *IdempotencyMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodPut {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(IdempotencyKeyHeader)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}
		// The same key on two endpoints names two different requests.
		scoped := r.Method + " " + r.URL.Path + " " + key

		ctx := r.Context()
		log := logger.WithContext(ctx, m.logger)

		exists, cached, err := m.store.CheckAndSet(ctx, scoped, nil, m.ttl)
		if err != nil {
			log.Error().Err(err).Msg("idempotency check failed")
			writeError(w, http.StatusInternalServerError, "idempotency check failed")
			return
		}

		if exists {
			var resp cachedResponse
			if err := json.Unmarshal(cached, &resp); err != nil || resp.Status == 0 {
				writeError(w, http.StatusConflict, "a request with this idempotency key is in progress")
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set(IdempotencyReplayHeader, "true")
			w.WriteHeader(resp.Status)
			_, _ = w.Write(resp.Body)
			return
		}

		recorder := &responseRecorder{
			ResponseWriter: w,
			body:           &bytes.Buffer{},
			statusCode:     http.StatusOK,
		}

		// A panicking handler never reaches the status check below; release
		// the key on the way out so Recovery's 500 does not leave it held.
		completed := false
		defer func() {
			if !completed {
				m.release(ctx, scoped, log)
			}
		}()
		next.ServeHTTP(recorder, r)
		completed = true

		if recorder.statusCode < 200 || recorder.statusCode >= 300 {
			m.release(ctx, scoped, log)
			return
		}

		body := bytes.TrimSpace(recorder.body.Bytes())
		if len(body) == 0 {
			body = nil
		}
		payload, err := json.Marshal(cachedResponse{Status: recorder.statusCode, Body: body})
		if err != nil {
			log.Error().Err(err).Msg("failed to encode idempotent response")
			return
		}
		if err := m.store.Update(ctx, scoped, payload, m.ttl); err != nil {
			log.Error().Err(err).Msg("failed to store idempotent response")
		}
	})
}

// release frees scoped even when the request context is already canceled.
func (m *IdempotencyMiddleware) release(ctx context.Context, scoped string, log zerolog.Logger) {
	if err := m.store.Release(context.WithoutCancel(ctx), scoped); err != nil {
		log.Warn().Err(err).Msg("failed to release idempotency key")
	}
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}
