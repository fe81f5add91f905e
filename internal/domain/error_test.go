package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	cause := errors.New("connection reset")
	tests := []struct {
		err  *Error
		want string
	}{
		{&Error{Message: "sale not found"}, "sale not found"},
		{&Error{Op: "sale.get", Message: "sale not found"}, "sale.get: sale not found"},
		{&Error{Message: "save failed", Err: cause}, "save failed: connection reset"},
		{&Error{Op: "catalog.color.delete", Message: "save failed", Err: cause}, "catalog.color.delete: save failed: connection reset"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Error())
	}
}

func TestErrorClassification(t *testing.T) {
	stock := InsufficientStock("cart.add", "p1", "red", SizeM, 4, 1)
	invalid := NewValidationError("cart.add", "quantity", "quantity must be at least 1")
	store := errors.New("pq: deadlock detected")

	tests := []struct {
		name    string
		err     error
		code    string
		message string
		op      string
	}{
		{"nil", nil, "", "", ""},
		{"bare", store, EINTERNAL, internalMessage, ""},
		{"internal hides message", Internal(store, "order.create", "failed to save order"), EINTERNAL, internalMessage, "order.create"},
		{"not found", NotFound("catalog.product.get", "product", "p9"), ENOTFOUND, "product not found: p9", "catalog.product.get"},
		{"conflict", Conflict("sale.create", "product already has an active sale"), ECONFLICT, "product already has an active sale", "sale.create"},
		{"unauthorized is generic", Unauthorized("auth", "bad signature"), EUNAUTHORIZED, "unauthorized", "auth"},
		{"forbidden is generic", Forbidden("order.get", "order belongs to u2"), EFORBIDDEN, "forbidden", "order.get"},
		{"external", External(store, "storage.put", "upload failed"), EEXTERNAL, "upload failed", "storage.put"},
		{"stock", stock, ECONFLICT, "Insufficient stock: requested 4, available 1", "cart.add"},
		{"wrapped stock", fmt.Errorf("checkout: %w", stock), ECONFLICT, "Insufficient stock: requested 4, available 1", "cart.add"},
		{"validation", invalid, EINVALID, "Validation failed", "cart.add"},
		{"version conflict", fmt.Errorf("save: %w", ErrVersionConflict), ECONFLICT, "Document was modified concurrently", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, ErrorCode(tt.err))
			assert.Equal(t, tt.message, ErrorMessage(tt.err))
			assert.Equal(t, tt.op, ErrorOp(tt.err))
			if tt.code != "" {
				assert.True(t, IsCode(tt.err, tt.code))
			}
		})
	}
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, EINTERNAL, "op", "msg"))

	cause := errors.New("disk full")
	err := WrapError(cause, EEXTERNAL, "storage.put", "upload failed")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, EEXTERNAL, ErrorCode(err))
}

func TestErrorf(t *testing.T) {
	err := Errorf(EINVALID, "sale.create", "percentage %d out of range", 120)
	assert.Equal(t, "percentage 120 out of range", ErrorMessage(err))
	assert.Equal(t, "sale.create: percentage 120 out of range", err.Error())
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("address.create", "zip", "zip is required")
	assert.Equal(t, "address.create: zip: zip is required", err.Error())

	err = AddFieldError(err, "city", "city is required")
	assert.Equal(t, "address.create: validation failed for 2 fields", err.Error())
	assert.Equal(t, map[string]string{"zip": "zip is required", "city": "city is required"}, GetValidationFields(err))

	fresh := AddFieldError(errors.New("other"), "name", "name is required")
	assert.Equal(t, map[string]string{"name": "name is required"}, GetValidationFields(fresh))
	assert.Nil(t, GetValidationFields(errors.New("other")))
}

func TestAvailableStock(t *testing.T) {
	n, ok := AvailableStock(fmt.Errorf("order: %w", InsufficientStock("order.create", "p1", "red", SizeL, 3, 0)))
	assert.True(t, ok)
	assert.Equal(t, 0, n)

	_, ok = AvailableStock(Conflict("", "x"))
	assert.False(t, ok)
}
