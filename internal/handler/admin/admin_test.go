package admin

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/atelier/internal/clock"
	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/memstore"
	"github.com/dukerupert/atelier/internal/service"
)

var testNow = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

// recordingAssets is an asset store that remembers what was deleted.
type recordingAssets struct {
	mu      sync.Mutex
	deleted []string
}

func (a *recordingAssets) Delete(_ context.Context, url string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deleted = append(a.deleted, url)
	return nil
}

type adminEnv struct {
	mux    *http.ServeMux
	store  domain.Store
	assets *recordingAssets
	orders service.OrderService
}

func newAdminEnv(t *testing.T) *adminEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memstore.NewStore()
	clk := clock.NewFake(testNow)
	assets := &recordingAssets{}

	pricing := service.NewPricingService(store.Products, clk, nil, logger)
	catalog := service.NewCatalogService(store, pricing, assets, clk, nil, logger)
	sales := service.NewSaleService(store, pricing, clk, nil, logger)
	orders := service.NewOrderService(store, clk, nil, logger)

	ch := NewCatalogHandler(catalog)
	sh := NewSaleHandler(sales)
	oh := NewOrderHandler(orders)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /admin/categories", ch.ListCategories)
	mux.HandleFunc("POST /admin/categories", ch.CreateCategory)
	mux.HandleFunc("PATCH /admin/categories/{id}", ch.UpdateCategory)
	mux.HandleFunc("DELETE /admin/categories/{id}", ch.DeleteCategory)
	mux.HandleFunc("GET /admin/colors", ch.ListColors)
	mux.HandleFunc("POST /admin/colors", ch.CreateColor)
	mux.HandleFunc("PATCH /admin/colors/{id}", ch.UpdateColor)
	mux.HandleFunc("DELETE /admin/colors/{id}", ch.DeleteColor)
	mux.HandleFunc("GET /admin/products", ch.ListProducts)
	mux.HandleFunc("POST /admin/products", ch.CreateProduct)
	mux.HandleFunc("GET /admin/products/{id}", ch.GetProduct)
	mux.HandleFunc("PATCH /admin/products/{id}", ch.UpdateProduct)
	mux.HandleFunc("DELETE /admin/products/{id}", ch.DeleteProduct)
	mux.HandleFunc("GET /admin/sales", sh.List)
	mux.HandleFunc("POST /admin/sales", sh.Create)
	mux.HandleFunc("GET /admin/sales/{id}", sh.Get)
	mux.HandleFunc("PATCH /admin/sales/{id}", sh.Update)
	mux.HandleFunc("DELETE /admin/sales/{id}", sh.Delete)
	mux.HandleFunc("GET /admin/orders", oh.List)
	mux.HandleFunc("PATCH /admin/orders/{id}/status", oh.UpdateStatus)

	return &adminEnv{mux: mux, store: store, assets: assets, orders: orders}
}

func (e *adminEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func decodeID(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ID == "" {
		t.Fatal("response has no id")
	}
	return body.ID
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

// seed creates a category, a color and an active product with one image,
// returning their IDs.
func (e *adminEnv) seed(t *testing.T) (categoryID, colorID, productID string) {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/admin/categories", `{"name":"Shirts","active":true}`)
	expectStatus(t, rec, http.StatusCreated)
	categoryID = decodeID(t, rec)

	rec = e.do(t, http.MethodPost, "/admin/colors", `{"name":"Red","value":"#ff0000"}`)
	expectStatus(t, rec, http.StatusCreated)
	colorID = decodeID(t, rec)

	rec = e.do(t, http.MethodPost, "/admin/products", `{
		"name": "Linen Shirt",
		"categoryId": "`+categoryID+`",
		"price": 1000,
		"discountPercent": 10,
		"status": "active",
		"variants": [{"colorId": "`+colorID+`", "images": ["/uploads/products/shirt.jpg"], "sizes": [{"size": "M", "stock": 5}]}]
	}`)
	expectStatus(t, rec, http.StatusCreated)
	productID = decodeID(t, rec)
	return categoryID, colorID, productID
}
