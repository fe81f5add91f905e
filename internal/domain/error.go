package domain

import (
	"errors"
	"fmt"
)

// Application error codes. Handlers map them to HTTP statuses and clients
// match on them, so they are part of the API.
const (
	EINVALID      = "invalid"         // 400
	EUNAUTHORIZED = "unauthorized"    // 401
	EFORBIDDEN    = "forbidden"       // 403
	ENOTFOUND     = "not_found"       // 404
	ECONFLICT     = "conflict"        // 409: stock exceeded, overlapping sale, stale write
	ETOOLARGE     = "too_large"       // 413
	ERATELIMIT    = "rate_limited"    // 429
	EINTERNAL     = "internal"        // 500: message is never shown
	ENOTIMPL      = "not_implemented" // 501
	EEXTERNAL     = "external"        // 502: asset store, mailer or broker failed
	ETIMEOUT      = "timeout"         // 503
)

const internalMessage = "An internal error occurred. Please try again later."

// Error is an application error. Message is safe to show to callers unless
// Code is EINTERNAL; Op and Err are for logs.
type Error struct {
	Code    string
	Message string
	Op      string // e.g. "sale.create"
	Err     error
}

func (e *Error) Error() string {
	s := e.Message
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorCode returns the code of the first application error in err's chain,
// EINTERNAL for any other error, and "" for nil.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var (
		se *InsufficientStockError
		ve *ValidationError
		e  *Error
	)
	switch {
	case errors.As(err, &se):
		return ECONFLICT
	case errors.As(err, &ve):
		return EINVALID
	case errors.As(err, &e):
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage returns the caller-facing message for err. Internal and
// unknown errors get a generic message.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var (
		se *InsufficientStockError
		ve *ValidationError
		e  *Error
	)
	switch {
	case errors.As(err, &se):
		return se.Message()
	case errors.As(err, &ve):
		return "Validation failed"
	case errors.As(err, &e):
		switch e.Code {
		case EINTERNAL:
			return internalMessage
		case EUNAUTHORIZED:
			return "unauthorized"
		case EFORBIDDEN:
			return "forbidden"
		}
		return e.Message
	}
	return internalMessage
}

// ErrorOp returns the operation that produced err, if it recorded one.
func ErrorOp(err error) string {
	var (
		e  *Error
		se *InsufficientStockError
		ve *ValidationError
	)
	switch {
	case errors.As(err, &e):
		return e.Op
	case errors.As(err, &se):
		return se.Op
	case errors.As(err, &ve):
		return ve.Op
	}
	return ""
}

// IsCode reports whether err carries code.
func IsCode(err error, code string) bool {
	return ErrorCode(err) == code
}

// Errorf builds an error with a formatted caller-facing message.
func Errorf(code, op, format string, args ...interface{}) error {
	return &Error{Code: code, Op: op, Message: fmt.Sprintf(format, args...)}
}

// WrapError attaches code, op and message to err. A nil err stays nil.
func WrapError(err error, code, op, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Op: op, Message: message, Err: err}
}

func NotFound(op, resource, id string) error {
	return Errorf(ENOTFOUND, op, "%s not found: %s", resource, id)
}

func Unauthorized(op, message string) error {
	return &Error{Code: EUNAUTHORIZED, Op: op, Message: message}
}

func Forbidden(op, message string) error {
	return &Error{Code: EFORBIDDEN, Op: op, Message: message}
}

func Invalid(op, message string) error {
	return &Error{Code: EINVALID, Op: op, Message: message}
}

func Conflict(op, message string) error {
	return &Error{Code: ECONFLICT, Op: op, Message: message}
}

// External wraps a failure of the asset store, mailer or message broker.
func External(err error, op, message string) error {
	return &Error{Code: EEXTERNAL, Op: op, Message: message, Err: err}
}

// Internal wraps an unexpected failure. message is logged, never shown.
func Internal(err error, op, message string) error {
	return &Error{Code: EINTERNAL, Op: op, Message: message, Err: err}
}

// ErrVersionConflict is returned by compare-and-swap saves when the stored
// document changed after it was read.
var ErrVersionConflict = &Error{Code: ECONFLICT, Message: "Document was modified concurrently"}

// ValidationError collects per-field input problems.
type ValidationError struct {
	Op     string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	prefix := ""
	if e.Op != "" {
		prefix = e.Op + ": "
	}
	if len(e.Fields) == 1 {
		for field, msg := range e.Fields {
			return prefix + field + ": " + msg
		}
	}
	return fmt.Sprintf("%svalidation failed for %d fields", prefix, len(e.Fields))
}

// NewValidationError starts a validation error with one field.
func NewValidationError(op, field, message string) error {
	return &ValidationError{Op: op, Fields: map[string]string{field: message}}
}

// AddFieldError adds a field to err if it is a ValidationError, or starts a
// new one otherwise.
func AddFieldError(err error, field, message string) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		ve.Fields[field] = message
		return ve
	}
	return &ValidationError{Fields: map[string]string{field: message}}
}

// GetValidationFields returns err's field errors, or nil.
func GetValidationFields(err error) map[string]string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}

// InsufficientStockError reports a quantity above what one variant size
// holds. Available is the limiting stock so the caller can retry with it.
type InsufficientStockError struct {
	Op        string
	ProductID string
	ColorID   string
	Size      Size
	Requested int
	Available int
}

func InsufficientStock(op, productID, colorID string, size Size, requested, available int) error {
	return &InsufficientStockError{
		Op:        op,
		ProductID: productID,
		ColorID:   colorID,
		Size:      size,
		Requested: requested,
		Available: available,
	}
}

// Message is the caller-facing text.
func (e *InsufficientStockError) Message() string {
	return fmt.Sprintf("Insufficient stock: requested %d, available %d", e.Requested, e.Available)
}

func (e *InsufficientStockError) Error() string {
	if e.Op != "" {
		return e.Op + ": " + e.Message()
	}
	return e.Message()
}

// AvailableStock returns the limiting stock if err is an
// InsufficientStockError.
func AvailableStock(err error) (int, bool) {
	var se *InsufficientStockError
	if errors.As(err, &se) {
		return se.Available, true
	}
	return 0, false
}
