package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/dukerupert/atelier/internal/domain"
)

const flushTimeout = 2 * time.Second

// SentryConfig holds configuration for Sentry error tracking.
type SentryConfig struct {
	DSN         string
	Enabled     bool
	Environment string
	Release     string

	// SampleRate is the share of errors sent, 0 means 1.0.
	SampleRate float64

	// TracesSampleRate is the share of spans sent, 0 disables tracing.
	TracesSampleRate float64

	Debug bool
}

var enabled atomic.Bool

// InitSentry initializes the global Sentry client. The returned function
// flushes buffered events and must run on shutdown. With Sentry disabled or
// no DSN every helper in this file is a no-op.
func InitSentry(cfg SentryConfig, logger *slog.Logger) (func(), error) {
	enabled.Store(false)
	noop := func() {}

	if !cfg.Enabled {
		logger.Info("Sentry disabled")
		return noop, nil
	}
	if cfg.DSN == "" {
		logger.Warn("Sentry DSN not configured, disabling error tracking")
		return noop, nil
	}

	sampleRate := cfg.SampleRate
	if sampleRate == 0 {
		sampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       sampleRate,
		TracesSampleRate: cfg.TracesSampleRate,
		EnableTracing:    cfg.TracesSampleRate > 0,
		Debug:            cfg.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Sentry: %w", err)
	}
	enabled.Store(true)

	logger.Info("Sentry initialized",
		"environment", cfg.Environment,
		"release", cfg.Release,
		"sample_rate", sampleRate,
		"traces_sample_rate", cfg.TracesSampleRate,
	)
	return func() { sentry.Flush(flushTimeout) }, nil
}

// IsEnabled reports whether events are being sent.
func IsEnabled() bool {
	return enabled.Load()
}

// hubFor returns the request hub attached by SentryMiddleware, or the
// global hub outside a request.
func hubFor(ctx context.Context) *sentry.Hub {
	if ctx != nil {
		if hub := sentry.GetHubFromContext(ctx); hub != nil {
			return hub
		}
	}
	return sentry.CurrentHub()
}

// captureOn reports err on hub, tagged with its application error code and op.
func captureOn(hub *sentry.Hub, err error, extras map[string]interface{}) {
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("error_code", domain.ErrorCode(err))
		if op := domain.ErrorOp(err); op != "" {
			scope.SetTag("op", op)
		}
		for k, v := range extras {
			scope.SetExtra(k, v)
		}
		hub.CaptureException(err)
	})
}

// CaptureError reports err from background work such as the sale scheduler.
func CaptureError(err error, extras ...map[string]interface{}) {
	if !IsEnabled() || err == nil {
		return
	}
	var ex map[string]interface{}
	if len(extras) > 0 {
		ex = extras[0]
	}
	captureOn(sentry.CurrentHub(), err, ex)
}

// CaptureErrorFromContext reports err on the request hub so the user and
// request set by the middlewares below are attached.
func CaptureErrorFromContext(ctx context.Context, err error, extras map[string]interface{}) {
	if !IsEnabled() || err == nil {
		return
	}
	captureOn(hubFor(ctx), err, extras)
}

// CaptureMessage reports a non-error event, e.g. a lifecycle tick that
// left sales behind.
func CaptureMessage(message string, level sentry.Level, extras ...map[string]interface{}) {
	if !IsEnabled() {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(level)
		if len(extras) > 0 {
			for k, v := range extras[0] {
				scope.SetExtra(k, v)
			}
		}
		sentry.CaptureMessage(message)
	})
}

// AddBreadcrumb records a step that later events will carry.
func AddBreadcrumb(category, message string, data map[string]interface{}) {
	if !IsEnabled() {
		return
	}
	sentry.AddBreadcrumb(&sentry.Breadcrumb{
		Category: category,
		Message:  message,
		Data:     data,
		Level:    sentry.LevelInfo,
	})
}

// StartSpan starts a performance span and returns the span context with a
// finish function.
func StartSpan(ctx context.Context, operation, description string) (context.Context, func()) {
	if !IsEnabled() {
		return ctx, func() {}
	}
	span := sentry.StartSpan(ctx, operation)
	span.Description = description
	return span.Context(), span.Finish
}

// RecoverWithSentry reports a panic and re-panics. Use it deferred at the
// top of background goroutines.
func RecoverWithSentry() {
	r := recover()
	if r == nil {
		return
	}
	if IsEnabled() {
		sentry.CurrentHub().Recover(r)
		sentry.Flush(flushTimeout)
	}
	panic(r)
}

// SentryMiddleware gives each request its own hub carrying the request.
// Panics are reported and re-raised for router.Recovery to answer.
func SentryMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsEnabled() {
				next.ServeHTTP(w, r)
				return
			}

			hub := sentry.CurrentHub().Clone()
			hub.Scope().SetRequest(r)
			ctx := sentry.SetHubOnContext(r.Context(), hub)

			defer func() {
				if err := recover(); err != nil {
					hub.RecoverWithContext(ctx, err)
					panic(err)
				}
			}()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserInfo is the user attached to events.
type UserInfo struct {
	ID   string
	Role string
}

// UserContextExtractor reads the caller from a request context.
type UserContextExtractor func(ctx context.Context) *UserInfo

// SentryContextMiddleware attaches the route and the authenticated user to
// the request hub. It must run after SentryMiddleware and Authenticate.
func SentryContextMiddleware(userExtractor UserContextExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsEnabled() {
				next.ServeHTTP(w, r)
				return
			}

			hub := sentry.GetHubFromContext(r.Context())
			if hub == nil {
				hub = sentry.CurrentHub().Clone()
				r = r.WithContext(sentry.SetHubOnContext(r.Context(), hub))
			}

			hub.ConfigureScope(func(scope *sentry.Scope) {
				scope.SetContext("request", sentry.Context{
					"method": r.Method,
					"path":   r.URL.Path,
				})
				if userExtractor == nil {
					return
				}
				if user := userExtractor(r.Context()); user != nil {
					scope.SetUser(sentry.User{ID: user.ID})
					scope.SetTag("role", user.Role)
				}
			})

			next.ServeHTTP(w, r)
		})
	}
}
