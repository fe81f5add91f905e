package middleware

import (
	"context"
	"log/slog"
	"net/http"
)

const loggerKey contextKey = "logger"

// WithRequestLogger stores a logger carrying the request ID, the client IP
// and, for signed-in callers, the user ID and role. Handlers pick it up with
// GetLogger. It reads both RequestID and Authenticate so it runs after them.
func WithRequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			attrs := make([]any, 0, 5)
			attrs = append(attrs,
				slog.String("request_id", GetRequestID(ctx)),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("client_ip", GetClientIP(r)),
			)
			if identity := GetIdentity(ctx); identity != nil {
				attrs = append(attrs, slog.Group("user",
					slog.String("id", identity.UserID),
					slog.String("role", identity.Role),
				))
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, loggerKey, base.With(attrs...))))
		})
	}
}

// GetLogger returns the request logger, else fallback, else slog.Default.
func GetLogger(ctx context.Context, fallback ...*slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	for _, l := range fallback {
		if l != nil {
			return l
		}
	}
	return slog.Default()
}
