// Package domain provides the core business types, repository contracts and
// context helpers for the storefront.
//
// Context helpers centralize request-scoped data access so services never
// reach into HTTP state to find out who is acting.
package domain

import "context"

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	// identityContextKey stores the authenticated caller.
	identityContextKey contextKey = iota

	// requestIDContextKey stores the request ID for tracing.
	requestIDContextKey
)

// Roles recognised by the identity collaborator.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Identity is the authenticated caller resolved by the identity provider.
type Identity struct {
	UserID string
	Role   string
	Email  string
}

// IsAdmin reports whether the identity carries the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// --- Identity Context Helpers ---

// NewContextWithIdentity returns a new context with the identity attached.
func NewContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// IdentityFromContext retrieves the identity from context.
// Returns nil if no identity is present.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityContextKey).(*Identity)
	return id
}

// UserIDFromContext retrieves the user ID from context.
// Returns an empty string if no identity is present.
func UserIDFromContext(ctx context.Context) string {
	if id := IdentityFromContext(ctx); id != nil {
		return id.UserID
	}
	return ""
}

// --- Request ID Context Helpers ---

// NewContextWithRequestID returns a new context with the request ID attached.
func NewContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if no request ID is present.
func RequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDContextKey).(string)
	return requestID
}

// IsAuthenticated returns true if there is an identity in context.
func IsAuthenticated(ctx context.Context) bool {
	return IdentityFromContext(ctx) != nil
}
