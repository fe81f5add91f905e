package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/atelier/internal/domain"
)

func TestCart_AddItemMergesLines(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	cat, red, _ := env.seedCatalog(t)
	p := env.seedProduct(t, cat.ID, red.ID, 1200, 5)

	first, err := env.cart.AddItem(ctx, "u1", AddCartItemParams{ProductID: p.ID, ColorID: red.ID, Size: domain.SizeM, Quantity: 2})
	require.NoError(t, err)
	second, err := env.cart.AddItem(ctx, "u1", AddCartItemParams{ProductID: p.ID, ColorID: red.ID, Size: domain.SizeM, Quantity: 3})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.Quantity)

	summary, err := env.cart.GetCart(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, summary.Items, 1)
	assert.Equal(t, 5, summary.ItemCount)
	assert.Equal(t, int64(6000), summary.Subtotal)
	assert.Equal(t, 5, summary.Items[0].Available)
}

func TestCart_AddItemChecksCombinedQuantity(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	cat, red, _ := env.seedCatalog(t)
	p := env.seedProduct(t, cat.ID, red.ID, 1200, 5)

	_, err := env.cart.AddItem(ctx, "u1", AddCartItemParams{ProductID: p.ID, ColorID: red.ID, Size: domain.SizeM, Quantity: 4})
	require.NoError(t, err)

	_, err = env.cart.AddItem(ctx, "u1", AddCartItemParams{ProductID: p.ID, ColorID: red.ID, Size: domain.SizeM, Quantity: 2})
	require.Error(t, err)
	available, ok := domain.AvailableStock(err)
	require.True(t, ok)
	assert.Equal(t, 5, available)

	summary, err := env.cart.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, summary.ItemCount)
}

func TestCart_AddItemRejections(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	cat, red, blue := env.seedCatalog(t)
	p := env.seedProduct(t, cat.ID, red.ID, 1200, 5)

	draft, err := env.catalog.CreateProduct(ctx, CreateProductParams{
		Name:       "Draft",
		CategoryID: cat.ID,
		Price:      100,
		Variants:   []domain.Variant{{ColorID: red.ID, Sizes: []domain.SizeStock{{Size: domain.SizeM, Stock: 1}}}},
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		params AddCartItemParams
		want   error
	}{
		{"zero quantity", AddCartItemParams{ProductID: p.ID, ColorID: red.ID, Size: domain.SizeM}, ErrInvalidQuantity},
		{"unknown product", AddCartItemParams{ProductID: "nope", ColorID: red.ID, Size: domain.SizeM, Quantity: 1}, ErrProductNotFound},
		{"inactive product", AddCartItemParams{ProductID: draft.ID, ColorID: red.ID, Size: domain.SizeM, Quantity: 1}, ErrProductNotActive},
		{"unknown color", AddCartItemParams{ProductID: p.ID, ColorID: blue.ID, Size: domain.SizeM, Quantity: 1}, ErrVariantNotFound},
		{"unknown size", AddCartItemParams{ProductID: p.ID, ColorID: red.ID, Size: domain.SizeXXL, Quantity: 1}, ErrVariantNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.cart.AddItem(ctx, "u1", tt.params)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCart_SetQuantity(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	cat, red, _ := env.seedCatalog(t)
	p := env.seedProduct(t, cat.ID, red.ID, 1200, 5)

	item, err := env.cart.AddItem(ctx, "u1", AddCartItemParams{ProductID: p.ID, ColorID: red.ID, Size: domain.SizeM, Quantity: 1})
	require.NoError(t, err)

	env.clock.Advance(time.Minute)
	updated, err := env.cart.SetQuantity(ctx, "u1", item.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Quantity)
	assert.True(t, updated.UpdatedAt.After(item.UpdatedAt))

	_, err = env.cart.SetQuantity(ctx, "u1", item.ID, 6)
	_, ok := domain.AvailableStock(err)
	assert.True(t, ok)

	_, err = env.cart.SetQuantity(ctx, "u1", item.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = env.cart.SetQuantity(ctx, "u2", item.ID, 2)
	assert.ErrorIs(t, err, ErrForbidden)

	stored, err := env.store.Carts.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.Quantity, "failed updates leave the quantity alone")
}

func TestCart_GetCartReflectsCurrentPricing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	cat, red, _ := env.seedCatalog(t)
	p := env.seedProduct(t, cat.ID, red.ID, 1000, 5)

	_, err := env.cart.AddItem(ctx, "u1", AddCartItemParams{ProductID: p.ID, ColorID: red.ID, Size: domain.SizeM, Quantity: 2})
	require.NoError(t, err)

	createScheduledSale(t, env, p.ID, testStart.Add(-time.Hour), testStart.Add(time.Hour))

	summary, err := env.cart.GetCart(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, summary.Items, 1)
	assert.True(t, summary.Items[0].OnSale)
	assert.Equal(t, int64(640), summary.Items[0].UnitPrice)
	assert.Equal(t, int64(1280), summary.Subtotal)
}

func TestCart_GetCartToleratesDeletedProduct(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	cat, red, _ := env.seedCatalog(t)
	p := env.seedProduct(t, cat.ID, red.ID, 1000, 5)

	_, err := env.cart.AddItem(ctx, "u1", AddCartItemParams{ProductID: p.ID, ColorID: red.ID, Size: domain.SizeM, Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, env.store.Products.Delete(ctx, p.ID))

	summary, err := env.cart.GetCart(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, summary.Items, 1)
	assert.Zero(t, summary.Items[0].Available)
	assert.Zero(t, summary.Subtotal)
}

func TestCart_RemoveAndClear(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	cat, red, blue := env.seedCatalog(t)
	p := env.seedProduct(t, cat.ID, red.ID, 1000, 5)
	q, err := env.catalog.CreateProduct(ctx, CreateProductParams{
		Name:       "Scarf",
		CategoryID: cat.ID,
		Price:      500,
		Status:     domain.ProductStatusActive,
		Variants:   []domain.Variant{{ColorID: blue.ID, Sizes: []domain.SizeStock{{Size: domain.SizeS, Stock: 3}}}},
	})
	require.NoError(t, err)

	a, err := env.cart.AddItem(ctx, "u1", AddCartItemParams{ProductID: p.ID, ColorID: red.ID, Size: domain.SizeM, Quantity: 1})
	require.NoError(t, err)
	_, err = env.cart.AddItem(ctx, "u1", AddCartItemParams{ProductID: q.ID, ColorID: blue.ID, Size: domain.SizeS, Quantity: 1})
	require.NoError(t, err)

	assert.ErrorIs(t, env.cart.RemoveItem(ctx, "u2", a.ID), ErrForbidden)
	require.NoError(t, env.cart.RemoveItem(ctx, "u1", a.ID))
	assert.ErrorIs(t, env.cart.RemoveItem(ctx, "u1", a.ID), ErrCartItemNotFound)

	require.NoError(t, env.cart.Clear(ctx, "u1"))
	summary, err := env.cart.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, summary.Items)
}
