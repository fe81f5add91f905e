package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dukerupert/atelier/internal/clock"
	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/memstore"
)

var testStart = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockProductRepo wraps a real repository and lets tests intercept creates
// and saves and count writes.
type mockProductRepo struct {
	domain.ProductRepository

	mu         sync.Mutex
	saves      int
	SaveFunc   func(ctx context.Context, p *domain.Product) error
	CreateFunc func(ctx context.Context, p *domain.Product)
}

func (m *mockProductRepo) Create(ctx context.Context, p *domain.Product) error {
	m.mu.Lock()
	hook := m.CreateFunc
	m.mu.Unlock()
	if hook != nil {
		hook(ctx, p)
	}
	return m.ProductRepository.Create(ctx, p)
}

func (m *mockProductRepo) Save(ctx context.Context, p *domain.Product) error {
	m.mu.Lock()
	hook := m.SaveFunc
	m.mu.Unlock()
	if hook != nil {
		if err := hook(ctx, p); err != nil {
			return err
		}
	}
	if err := m.ProductRepository.Save(ctx, p); err != nil {
		return err
	}
	m.mu.Lock()
	m.saves++
	m.mu.Unlock()
	return nil
}

func (m *mockProductRepo) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// mockSaleRepo counts sale saves.
type mockSaleRepo struct {
	domain.SaleRepository

	mu    sync.Mutex
	saves int
}

func (m *mockSaleRepo) Save(ctx context.Context, s *domain.Sale) error {
	if err := m.SaleRepository.Save(ctx, s); err != nil {
		return err
	}
	m.mu.Lock()
	m.saves++
	m.mu.Unlock()
	return nil
}

func (m *mockSaleRepo) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

type testEnv struct {
	store    domain.Store
	products *mockProductRepo
	sales    *mockSaleRepo
	clock    *clock.Fake
	assets   *mockAssetStore

	pricing PricingService
	sale    SaleService
	catalog CatalogService
	cart    CartService
	order   OrderService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memstore.NewStore()
	products := &mockProductRepo{ProductRepository: store.Products}
	sales := &mockSaleRepo{SaleRepository: store.Sales}
	store.Products = products
	store.Sales = sales

	clk := clock.NewFake(testStart)
	assets := &mockAssetStore{}
	logger := discardLogger()

	pricing := NewPricingService(store.Products, clk, nil, logger)
	return &testEnv{
		store:    store,
		products: products,
		sales:    sales,
		clock:    clk,
		assets:   assets,
		pricing:  pricing,
		sale:     NewSaleService(store, pricing, clk, nil, logger),
		catalog:  NewCatalogService(store, pricing, assets, clk, nil, logger),
		cart:     NewCartService(store, clk, nil, logger),
		order:    NewOrderService(store, clk, nil, logger),
	}
}

// seedCatalog creates a category, the colors red and blue, and returns them.
func (e *testEnv) seedCatalog(t *testing.T) (*domain.Category, *domain.Color, *domain.Color) {
	t.Helper()
	ctx := context.Background()

	cat, err := e.catalog.CreateCategory(ctx, CreateCategoryParams{Name: "Shirts", Active: true})
	require.NoError(t, err)
	red, err := e.catalog.CreateColor(ctx, CreateColorParams{Name: "Red", Value: "#ff0000"})
	require.NoError(t, err)
	blue, err := e.catalog.CreateColor(ctx, CreateColorParams{Name: "Blue", Value: "#0000ff"})
	require.NoError(t, err)
	return cat, red, blue
}

// seedProduct creates an active product priced at price with one red variant.
func (e *testEnv) seedProduct(t *testing.T, categoryID, colorID string, price int64, stock int, images ...string) *domain.Product {
	t.Helper()
	p, err := e.catalog.CreateProduct(context.Background(), CreateProductParams{
		Name:       "Linen Shirt",
		CategoryID: categoryID,
		Price:      price,
		Status:     domain.ProductStatusActive,
		Variants: []domain.Variant{{
			ColorID: colorID,
			Images:  images,
			Sizes:   []domain.SizeStock{{Size: domain.SizeM, Stock: stock}},
		}},
	})
	require.NoError(t, err)
	return p
}

func (e *testEnv) product(t *testing.T, id string) *domain.Product {
	t.Helper()
	p, err := e.store.Products.Get(context.Background(), id)
	require.NoError(t, err)
	return p
}

func (e *testEnv) saleByID(t *testing.T, id string) *domain.Sale {
	t.Helper()
	s, err := e.store.Sales.Get(context.Background(), id)
	require.NoError(t, err)
	return s
}
