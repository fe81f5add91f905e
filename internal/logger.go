package internal

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/dukerupert/atelier/internal/domain"
)

// NewLogger returns the process logger: text for dev, JSON for prod. Every
// record carries service=atelier, and application errors logged as
// attribute values are expanded into message, code and op.
func NewLogger(w io.Writer, env string, level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       ParseLevel(level),
		ReplaceAttr: replaceAttr(env == "prod"),
	}

	var h slog.Handler
	if env == "prod" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With(slog.String("service", "atelier"))
}

// ParseLevel maps a LOG_LEVEL value to a slog level. Unknown values log at info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func replaceAttr(prod bool) func(groups []string, a slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if prod && len(groups) == 0 && a.Key == slog.TimeKey {
			return slog.String(slog.TimeKey, a.Value.Time().UTC().Format(time.RFC3339Nano))
		}
		if a.Value.Kind() != slog.KindAny {
			return a
		}
		err, ok := a.Value.Any().(error)
		if !ok {
			return a
		}
		code := domain.ErrorCode(err)
		var appErr *domain.Error
		if code == domain.EINTERNAL && !errors.As(err, &appErr) {
			return slog.String(a.Key, err.Error())
		}
		attrs := []any{slog.String("message", err.Error()), slog.String("code", code)}
		if op := domain.ErrorOp(err); op != "" {
			attrs = append(attrs, slog.String("op", op))
		}
		return slog.Group(a.Key, attrs...)
	}
}
