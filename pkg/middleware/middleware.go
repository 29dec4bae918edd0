package middleware

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/diagnosis/condo-bookings/pkg/cache"
	"github.com/diagnosis/condo-bookings/pkg/logger"
)

const idempotencyTTL = 24 * time.Hour

// RequestContext tags each request with its id and the service name so every
// log line written further down carries both. A client id is kept when short.
func RequestContext(service string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(middleware.RequestIDHeader)
			if id == "" || len(id) > 64 {
				id = uuid.NewString()
			}
			w.Header().Set(middleware.RequestIDHeader, id)

			ctx := context.WithValue(r.Context(), logger.RequestIDKey, id)
			ctx = context.WithValue(ctx, logger.ServiceKey, service)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccessLog writes one line per request. chi's Recoverer reports panics
// through the same entry.
func AccessLog(next http.Handler) http.Handler {
	return middleware.RequestLogger(accessLogFormatter{})(next)
}

type accessLogFormatter struct{}

func (accessLogFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return accessLogEntry{r: r}
}

type accessLogEntry struct{ r *http.Request }

func (e accessLogEntry) Write(status, size int, _ http.Header, elapsed time.Duration, _ any) {
	route := e.r.URL.Path
	if rc := chi.RouteContext(e.r.Context()); rc != nil && rc.RoutePattern() != "" {
		route = rc.RoutePattern()
	}
	logger.InfoContext(e.r.Context(), "request",
		"method", e.r.Method, "route", route, "status", status,
		"bytes", size, "duration", elapsed, "user_agent", e.r.UserAgent())
}

func (e accessLogEntry) Panic(v any, stack []byte) {
	logger.ErrorContext(e.r.Context(), "panic serving request",
		"method", e.r.Method, "path", e.r.URL.Path, "panic", v, "stack", string(stack))
}

// Health answers /healthz before routing.
func Health(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok","timestamp":"` + time.Now().UTC().Format(time.RFC3339) + `"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IdempotencyStore is satisfied by the Redis store and its Postgres fallback.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Idempotency replays the first successful response for a repeated
// Idempotency-Key on POST requests to the same path.
func Idempotency(store IdempotencyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Idempotency-Key")
			if r.Method != http.MethodPost || key == "" || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			hashedKey := cache.HashKey("idempotency", r.URL.Path+"\x00"+key)

			existing, err := store.Get(r.Context(), hashedKey)
			if err != nil {
				logger.WarnContext(r.Context(), "Idempotency lookup failed", "error", err)
			} else if existing != "" {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(existing))
				return
			}

			var body bytes.Buffer
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&body)
			next.ServeHTTP(ww, r)

			if ww.Status() >= 200 && ww.Status() < 300 && body.Len() > 0 {
				if err := store.Set(r.Context(), hashedKey, body.String(), idempotencyTTL); err != nil {
					logger.WarnContext(r.Context(), "Failed to store idempotent response", "error", err)
				}
			}
		})
	}
}
