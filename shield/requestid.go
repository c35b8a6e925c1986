package shield

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/hazyhaar/xptrail/kit"
)

// RequestID assigns each request a UUIDv7 (or keeps an incoming
// X-Request-ID), stores it under kit.RequestIDKey, echoes it in the
// response and attaches a request-scoped logger under LoggerKey.
func RequestID(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" || len(id) > 64 {
				id = uuid.Must(uuid.NewV7()).String()
			}
			w.Header().Set("X-Request-ID", id)

			ctx := kit.WithTransport(kit.WithRequestID(r.Context(), id), "http")
			l := logger.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			ctx = context.WithValue(ctx, LoggerKey, l)
			l.Info("shield: request")

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
