package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/middleware"
	"github.com/dukerupert/atelier/internal/telemetry"
)

// ErrorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	return middleware.StatusForCode(code)
}

type errorBody struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	Available *int              `json:"available,omitempty"`
}

// ErrorResponse writes an error response for err. Clients get JSON unless
// they only asked for HTML or plain text. Internal details never reach the
// body; 5xx errors are logged and reported to Sentry.
func ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	status := ErrorCodeToHTTPStatus(code)
	body := errorBody{
		Code:    code,
		Message: domain.ErrorMessage(err),
		Fields:  domain.GetValidationFields(err),
	}
	if available, ok := domain.AvailableStock(err); ok {
		body.Available = &available
	}

	logError(r, err, code, status)

	if !acceptsJSON(r) && prefersText(r) {
		http.Error(w, body.Message, status)
		return
	}
	writeJSON(w, status, map[string]errorBody{"error": body})
}

// ValidationErrorResponse writes a 400 with per-field messages. Anything
// that is not a validation error falls back to ErrorResponse.
func ValidationErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		ErrorResponse(w, r, err)
		return
	}
	ErrorResponse(w, r, ve)
}

// NotFoundResponse writes a generic 404.
func NotFoundResponse(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, domain.Errorf(domain.ENOTFOUND, "", "Not found"))
}

// UnauthorizedResponse writes a 401.
func UnauthorizedResponse(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, domain.Unauthorized("", "unauthorized"))
}

// ForbiddenResponse writes a 403.
func ForbiddenResponse(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, domain.Forbidden("", "forbidden"))
}

// InternalErrorResponse writes a 500. err may be nil.
func InternalErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	ErrorResponse(w, r, domain.Internal(err, "", "internal error"))
}

func logError(r *http.Request, err error, code string, status int) {
	logger := middleware.GetLogger(r.Context())
	attrs := []any{
		slog.String("code", code),
		slog.String("op", domain.ErrorOp(err)),
		slog.Int("status", status),
		slog.String("error", fmt.Sprint(err)),
	}

	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", attrs...)
		telemetry.CaptureErrorFromContext(r.Context(), err, map[string]interface{}{
			"code":   code,
			"status": status,
			"path":   r.URL.Path,
		})
		return
	}
	logger.InfoContext(r.Context(), "request rejected", attrs...)
}

// acceptsJSON reports whether the client explicitly deals in JSON.
func acceptsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasSuffix(r.URL.Path, ".json")
}

func prefersText(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") || strings.Contains(accept, "text/plain")
}
