package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/atelier/internal/domain"
)

func createScheduledSale(t *testing.T, env *testEnv, productID string, start, end time.Time) *domain.Sale {
	t.Helper()
	sale, err := env.sale.CreateSale(context.Background(), CreateSaleParams{
		Name:      "Summer",
		StartDate: start,
		EndDate:   end,
		Products:  []SaleEntryParams{{ProductID: productID, SalePrice: 800, SalePriceDiscount: 20}},
	})
	require.NoError(t, err)
	return sale
}

func TestSaleLifecycle_ActivatesAndPricesOrders(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	cat, red, _ := env.seedCatalog(t)
	p := env.seedProduct(t, cat.ID, red.ID, 1000, 5)

	start := testStart.Add(24 * time.Hour)
	sale := createScheduledSale(t, env, p.ID, start, start.Add(7*24*time.Hour))
	assert.Equal(t, domain.SaleStatusScheduled, sale.Status)
	assert.Equal(t, int64(640), sale.Products[0].DiscountedSalePrice)
	assert.False(t, env.product(t, p.ID).SaleType, "a scheduled sale must not touch pricing")

	env.clock.Set(start)
	result, err := env.sale.RunLifecycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{sale.ID}, result.Activated)
	assert.Empty(t, result.Failed)

	got := env.product(t, p.ID)
	assert.True(t, got.SaleType)
	assert.Equal(t, int64(640), got.DiscountedSalePrice)
	assert.Equal(t, sale.ID, got.SaleID)
	assert.Equal(t, domain.SaleStatusActive, env.saleByID(t, sale.ID).Status)

	// An order placed now pays the sale price.
	addr := &domain.Address{ID: "a1", UserID: "u1", FullName: "Ada", Line1: "1 Main", City: "Paris", Country: "FR"}
	require.NoError(t, env.store.Addresses.Create(ctx, addr))
	order, err := env.order.CreateOrder(ctx, "u1", CreateOrderParams{
		Items:             []OrderItemParams{{ProductID: p.ID, ColorID: red.ID, Size: domain.SizeM, Quantity: 1}},
		ShippingAddressID: "a1",
		PaymentMethod:     domain.PaymentCashOnDelivery,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(640), order.Items[0].PriceAtPurchase)
	assert.True(t, order.Items[0].OnSale)
	assert.Equal(t, int64(640), order.Total)
}

func TestSaleLifecycle_SecondTickWritesNothing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	cat, red, _ := env.seedCatalog(t)
	p := env.seedProduct(t, cat.ID, red.ID, 1000, 5)
	createScheduledSale(t, env, p.ID, testStart.Add(time.Hour), testStart.Add(48*time.Hour))

	env.clock.Advance(2 * time.Hour)
	_, err := env.sale.RunLifecycle(ctx)
	require.NoError(t, err)

	productSaves, saleSaves := env.products.Saves(), env.sales.Saves()
	result, err := env.sale.RunLifecycle(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Transitions())
	assert.Equal(t, productSaves, env.products.Saves())
	assert.Equal(t, saleSaves, env.sales.Saves())
}

func TestSaleLifecycle_ExpiresAndStrips(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	cat, red, _ := env.seedCatalog(t)
	p := env.seedProduct(t, cat.ID, red.ID, 1000, 5)
	end := testStart.Add(48 * time.Hour)
	sale := createScheduledSale(t, env, p.ID, testStart.Add(time.Hour), end)

	env.clock.Advance(2 * time.Hour)
	_, err := env.sale.RunLifecycle(ctx)
	require.NoError(t, err)
	require.True(t, env.product(t, p.ID).SaleType)

	env.clock.Set(end)
	result, err := env.sale.RunLifecycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{sale.ID}, result.Expired)

	got := env.product(t, p.ID)
	assert.False(t, got.SaleType)
	assert.Zero(t, got.SalePrice)
	assert.Zero(t, got.DiscountedSalePrice)
	assert.Empty(t, got.SaleID)
	assert.Equal(t, int64(1000), got.EffectivePrice())
	assert.Equal(t, domain.SaleStatusExpired, env.saleByID(t, sale.ID).Status)
}

func TestSaleLifecycle_ScheduledSaleThatEndedIsExpiredWithoutPricing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	cat, red, _ := env.seedCatalog(t)
	p := env.seedProduct(t, cat.ID, red.ID, 1000, 5)
	sale := createScheduledSale(t, env, p.ID, testStart.Add(time.Hour), testStart.Add(2*time.Hour))

	saves := env.products.Saves()
	env.clock.Advance(3 * time.Hour)
	result, err := env.sale.RunLifecycle(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{sale.ID}, result.Expired)
	assert.Empty(t, result.Activated)
	assert.Equal(t, saves, env.products.Saves())
	assert.Equal(t, domain.SaleStatusExpired, env.saleByID(t, sale.ID).Status)
}

func TestSaleLifecycle_ManualInactiveWins(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	cat, red, _ := env.seedCatalog(t)
	p := env.seedProduct(t, cat.ID, red.ID, 1000, 5)
	sale := createScheduledSale(t, env, p.ID, testStart.Add(-time.Hour), testStart.Add(24*time.Hour))
	require.Equal(t, domain.SaleStatusActive, sale.Status, "a sale created inside its window starts active")
	require.True(t, env.product(t, p.ID).SaleType)

	inactive := domain.SaleStatusInactive
	updated, err := env.sale.UpdateSale(ctx, sale.ID, UpdateSaleParams{Status: &inactive})
	require.NoError(t, err)
	assert.Equal(t, domain.SaleStatusInactive, updated.Status)
	assert.False(t, env.product(t, p.ID).SaleType)

	result, err := env.sale.RunLifecycle(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Transitions())
	assert.False(t, env.product(t, p.ID).SaleType)
	assert.Equal(t, domain.SaleStatusInactive, env.saleByID(t, sale.ID).Status)
}

func TestSaleLifecycle_SkipsMissingProducts(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	cat, red, _ := env.seedCatalog(t)
	p1 := env.seedProduct(t, cat.ID, red.ID, 1000, 5)
	p2 := env.seedProduct(t, cat.ID, red.ID, 2000, 5)

	sale, err := env.sale.CreateSale(ctx, CreateSaleParams{
		Name:      "Two",
		StartDate: testStart.Add(time.Hour),
		EndDate:   testStart.Add(24 * time.Hour),
		Products: []SaleEntryParams{
			{ProductID: p1.ID, SalePrice: 900},
			{ProductID: p2.ID, SalePrice: 1500},
		},
	})
	require.NoError(t, err)
	require.NoError(t, env.store.Products.Delete(ctx, p1.ID))

	env.clock.Advance(2 * time.Hour)
	result, err := env.sale.RunLifecycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{sale.ID}, result.Activated)
	assert.Equal(t, []string{p1.ID}, result.MissingProducts)
	assert.Equal(t, int64(1500), env.product(t, p2.ID).DiscountedSalePrice)
}

func TestSaleLifecycle_FailureLeavesStatusForRetry(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	cat, red, _ := env.seedCatalog(t)
	p := env.seedProduct(t, cat.ID, red.ID, 1000, 5)
	sale := createScheduledSale(t, env, p.ID, testStart.Add(time.Hour), testStart.Add(24*time.Hour))

	env.products.SaveFunc = func(ctx context.Context, p *domain.Product) error {
		return domain.ErrVersionConflict
	}
	env.clock.Advance(2 * time.Hour)
	result, err := env.sale.RunLifecycle(ctx)
	require.NoError(t, err)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, sale.ID, result.Failed[0].SaleID)
	assert.Equal(t, domain.SaleStatusScheduled, env.saleByID(t, sale.ID).Status)

	env.products.SaveFunc = nil
	result, err = env.sale.RunLifecycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{sale.ID}, result.Activated)
	assert.True(t, env.product(t, p.ID).SaleType)
}

func TestSaleLifecycle_BackToBackSalesHandOver(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	cat, red, _ := env.seedCatalog(t)
	p := env.seedProduct(t, cat.ID, red.ID, 1000, 5)

	boundary := testStart.Add(24 * time.Hour)
	first := createScheduledSale(t, env, p.ID, testStart.Add(-time.Hour), boundary)
	second, err := env.sale.CreateSale(ctx, CreateSaleParams{
		Name:      "Autumn",
		StartDate: boundary,
		EndDate:   boundary.Add(24 * time.Hour),
		Products:  []SaleEntryParams{{ProductID: p.ID, SalePrice: 700}},
	})
	require.NoError(t, err)

	env.clock.Set(boundary)
	result, err := env.sale.RunLifecycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID}, result.Expired)
	assert.Equal(t, []string{second.ID}, result.Activated)

	got := env.product(t, p.ID)
	assert.Equal(t, second.ID, got.SaleID)
	assert.Equal(t, int64(700), got.DiscountedSalePrice)
}

func TestCreateSale_Validation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	cat, red, _ := env.seedCatalog(t)
	p := env.seedProduct(t, cat.ID, red.ID, 1000, 5)

	tests := []struct {
		name   string
		params CreateSaleParams
		field  string
	}{
		{
			name:   "end before start",
			params: CreateSaleParams{Name: "x", StartDate: testStart.Add(2 * time.Hour), EndDate: testStart.Add(time.Hour), Products: []SaleEntryParams{{ProductID: p.ID, SalePrice: 1}}},
			field:  "endDate",
		},
		{
			name:   "no products",
			params: CreateSaleParams{Name: "x", StartDate: testStart, EndDate: testStart.Add(time.Hour)},
			field:  "products",
		},
		{
			name:   "duplicate product",
			params: CreateSaleParams{Name: "x", StartDate: testStart, EndDate: testStart.Add(time.Hour), Products: []SaleEntryParams{{ProductID: p.ID, SalePrice: 1}, {ProductID: p.ID, SalePrice: 2}}},
			field:  "products[1]",
		},
		{
			name:   "zero sale price",
			params: CreateSaleParams{Name: "x", StartDate: testStart, EndDate: testStart.Add(time.Hour), Products: []SaleEntryParams{{ProductID: p.ID}}},
			field:  "products[0]",
		},
		{
			name:   "full discount",
			params: CreateSaleParams{Name: "x", StartDate: testStart, EndDate: testStart.Add(time.Hour), Products: []SaleEntryParams{{ProductID: p.ID, SalePrice: 10, SalePriceDiscount: 100}}},
			field:  "products[0]",
		},
		{
			name:   "unknown product",
			params: CreateSaleParams{Name: "x", StartDate: testStart, EndDate: testStart.Add(time.Hour), Products: []SaleEntryParams{{ProductID: "ghost", SalePrice: 10}}},
			field:  "products[0]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.sale.CreateSale(ctx, tt.params)
			require.Error(t, err)
			assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
			assert.Contains(t, domain.GetValidationFields(err), tt.field)
		})
	}

	sales, err := env.sale.ListSales(ctx)
	require.NoError(t, err)
	assert.Empty(t, sales)
}

func TestCreateSale_OverlapConflict(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	cat, red, _ := env.seedCatalog(t)
	p := env.seedProduct(t, cat.ID, red.ID, 1000, 5)
	createScheduledSale(t, env, p.ID, testStart.Add(time.Hour), testStart.Add(48*time.Hour))

	_, err := env.sale.CreateSale(ctx, CreateSaleParams{
		Name:      "Clash",
		StartDate: testStart.Add(24 * time.Hour),
		EndDate:   testStart.Add(72 * time.Hour),
		Products:  []SaleEntryParams{{ProductID: p.ID, SalePrice: 500}},
	})
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
}

func TestCreateSale_OverlapWithEndedUnexpiredSale(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	cat, red, _ := env.seedCatalog(t)
	p := env.seedProduct(t, cat.ID, red.ID, 1000, 5)
	old := createScheduledSale(t, env, p.ID, testStart.Add(-time.Hour), testStart.Add(time.Hour))
	require.Equal(t, domain.SaleStatusActive, old.Status)

	// The end date passes without a lifecycle run.
	env.clock.Advance(2 * time.Hour)
	now := env.clock.Now()

	tests := []struct {
		name     string
		start    time.Time
		wantCode string
	}{
		{name: "starts now", start: now, wantCode: domain.ECONFLICT},
		{name: "started earlier", start: now.Add(-30 * time.Minute), wantCode: domain.ECONFLICT},
		{name: "starts later", start: now.Add(time.Hour), wantCode: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sale, err := env.sale.CreateSale(ctx, CreateSaleParams{
				Name:      "Follow-up " + tt.name,
				StartDate: tt.start,
				EndDate:   now.Add(48 * time.Hour),
				Products:  []SaleEntryParams{{ProductID: p.ID, SalePrice: 700}},
			})
			assert.Equal(t, tt.wantCode, domain.ErrorCode(err))
			if tt.wantCode != "" {
				assert.Nil(t, sale)
				return
			}
			require.NoError(t, err)
			require.NoError(t, env.sale.DeleteSale(ctx, sale.ID))
		})
	}

	got := env.product(t, p.ID)
	assert.Equal(t, old.ID, got.SaleID, "the ended sale keeps its pricing until it is expired")
}

func TestUpdateSale_RemovingProductStripsIt(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	cat, red, _ := env.seedCatalog(t)
	p1 := env.seedProduct(t, cat.ID, red.ID, 1000, 5)
	p2 := env.seedProduct(t, cat.ID, red.ID, 2000, 5)

	sale, err := env.sale.CreateSale(ctx, CreateSaleParams{
		Name:      "Now",
		StartDate: testStart.Add(-time.Hour),
		EndDate:   testStart.Add(24 * time.Hour),
		Status:    domain.SaleStatusActive,
		Products: []SaleEntryParams{
			{ProductID: p1.ID, SalePrice: 900},
			{ProductID: p2.ID, SalePrice: 1500},
		},
	})
	require.NoError(t, err)
	require.Equal(t, domain.SaleStatusActive, sale.Status)

	products := []SaleEntryParams{{ProductID: p2.ID, SalePrice: 1200, SalePriceDiscount: 10}}
	updated, err := env.sale.UpdateSale(ctx, sale.ID, UpdateSaleParams{Products: &products})
	require.NoError(t, err)
	assert.Len(t, updated.Products, 1)

	assert.False(t, env.product(t, p1.ID).SaleType)
	got := env.product(t, p2.ID)
	assert.True(t, got.SaleType)
	assert.Equal(t, int64(1080), got.DiscountedSalePrice)
	assert.Equal(t, int64(1080), env.saleByID(t, sale.ID).Products[0].DiscountedSalePrice)
}

func TestUpdateSale_ReactivationAfterEndRefused(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	cat, red, _ := env.seedCatalog(t)
	p := env.seedProduct(t, cat.ID, red.ID, 1000, 5)
	sale := createScheduledSale(t, env, p.ID, testStart.Add(time.Hour), testStart.Add(2*time.Hour))

	inactive := domain.SaleStatusInactive
	_, err := env.sale.UpdateSale(ctx, sale.ID, UpdateSaleParams{Status: &inactive})
	require.NoError(t, err)

	env.clock.Advance(3 * time.Hour)
	active := domain.SaleStatusActive
	_, err = env.sale.UpdateSale(ctx, sale.ID, UpdateSaleParams{Status: &active})
	assert.ErrorIs(t, err, ErrSaleEnded)
	assert.False(t, env.product(t, p.ID).SaleType)

	// Extending the end date makes reactivation legal again.
	end := env.clock.Now().Add(time.Hour)
	updated, err := env.sale.UpdateSale(ctx, sale.ID, UpdateSaleParams{Status: &active, EndDate: &end})
	require.NoError(t, err)
	assert.Equal(t, domain.SaleStatusActive, updated.Status)
	assert.True(t, env.product(t, p.ID).SaleType)
}

func TestDeleteSale_StripsProductsFirst(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	cat, red, _ := env.seedCatalog(t)
	p := env.seedProduct(t, cat.ID, red.ID, 1000, 5)
	sale := createScheduledSale(t, env, p.ID, testStart.Add(-time.Hour), testStart.Add(time.Hour))
	require.True(t, env.product(t, p.ID).SaleType)

	require.NoError(t, env.sale.DeleteSale(ctx, sale.ID))
	assert.False(t, env.product(t, p.ID).SaleType)

	_, err := env.sale.GetSale(ctx, sale.ID)
	assert.ErrorIs(t, err, ErrSaleNotFound)
}
