package domain

import (
	"context"
	"testing"
)

func TestIdentityContext(t *testing.T) {
	t.Run("IdentityFromContext returns nil when unset", func(t *testing.T) {
		if id := IdentityFromContext(context.Background()); id != nil {
			t.Errorf("expected nil identity, got %+v", id)
		}
		if IsAuthenticated(context.Background()) {
			t.Error("expected unauthenticated context")
		}
	})

	t.Run("round trip", func(t *testing.T) {
		ctx := NewContextWithIdentity(context.Background(), &Identity{UserID: "u-1", Role: RoleCustomer})

		id := IdentityFromContext(ctx)
		if id == nil {
			t.Fatal("expected identity, got nil")
		}
		if id.UserID != "u-1" {
			t.Errorf("UserID = %q, want %q", id.UserID, "u-1")
		}
		if UserIDFromContext(ctx) != "u-1" {
			t.Errorf("UserIDFromContext = %q", UserIDFromContext(ctx))
		}
		if id.IsAdmin() {
			t.Error("customer should not be admin")
		}
	})

	t.Run("admin role", func(t *testing.T) {
		ctx := NewContextWithIdentity(context.Background(), &Identity{UserID: "a-1", Role: RoleAdmin})
		if !IdentityFromContext(ctx).IsAdmin() {
			t.Error("expected admin")
		}
	})

	t.Run("nil identity is not admin", func(t *testing.T) {
		var id *Identity
		if id.IsAdmin() {
			t.Error("nil identity should not be admin")
		}
	})
}

func TestRequestIDContext(t *testing.T) {
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty request ID, got %q", got)
	}

	ctx := NewContextWithRequestID(context.Background(), "req-123")
	if got := RequestIDFromContext(ctx); got != "req-123" {
		t.Errorf("RequestIDFromContext = %q, want %q", got, "req-123")
	}
}
