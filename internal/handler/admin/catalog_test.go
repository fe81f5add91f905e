package admin

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/dukerupert/atelier/internal/domain"
)

func TestCatalog_CreateProductComputesPricing(t *testing.T) {
	env := newAdminEnv(t)
	_, _, productID := env.seed(t)

	rec := env.do(t, http.MethodGet, "/admin/products/"+productID, "")
	expectStatus(t, rec, http.StatusOK)

	var p domain.Product
	if err := json.NewDecoder(rec.Body).Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.DiscountedPrice != 900 {
		t.Errorf("discountedPrice = %d, want 900", p.DiscountedPrice)
	}
	if p.SaleType {
		t.Error("new product must not be on sale")
	}
}

func TestCatalog_CreateProductValidation(t *testing.T) {
	env := newAdminEnv(t)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing name", `{"categoryId":"c1","price":100}`, "name"},
		{"negative price", `{"name":"x","categoryId":"c1","price":-5}`, "price"},
		{"discount over 100", `{"name":"x","categoryId":"c1","price":100,"discountPercent":150}`, "discountPercent"},
		{"unknown status", `{"name":"x","categoryId":"c1","price":100,"status":"live"}`, "status"},
		{"unknown category", `{"name":"x","categoryId":"nope","price":100}`, "categoryId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/admin/products", tt.body)
			expectStatus(t, rec, http.StatusBadRequest)
			if !strings.Contains(rec.Body.String(), `"`+tt.field+`"`) {
				t.Errorf("body %s does not name field %q", rec.Body.String(), tt.field)
			}
		})
	}
}

func TestCatalog_UpdateProductInvalidLeavesStored(t *testing.T) {
	env := newAdminEnv(t)
	_, _, productID := env.seed(t)

	rec := env.do(t, http.MethodPatch, "/admin/products/"+productID, `{"price":-1}`)
	expectStatus(t, rec, http.StatusBadRequest)

	rec = env.do(t, http.MethodPatch, "/admin/products/"+productID, `{"price":2000}`)
	expectStatus(t, rec, http.StatusOK)
	var p domain.Product
	if err := json.NewDecoder(rec.Body).Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Price != 2000 || p.DiscountedPrice != 1800 {
		t.Errorf("price = %d, discountedPrice = %d, want 2000 and 1800", p.Price, p.DiscountedPrice)
	}
}

func TestCatalog_DeleteCategoryInUse(t *testing.T) {
	env := newAdminEnv(t)
	categoryID, _, productID := env.seed(t)

	rec := env.do(t, http.MethodDelete, "/admin/categories/"+categoryID, "")
	expectStatus(t, rec, http.StatusConflict)

	expectStatus(t, env.do(t, http.MethodDelete, "/admin/products/"+productID, ""), http.StatusNoContent)
	expectStatus(t, env.do(t, http.MethodDelete, "/admin/categories/"+categoryID, ""), http.StatusNoContent)

	if len(env.assets.deleted) != 1 || env.assets.deleted[0] != "/uploads/products/shirt.jpg" {
		t.Errorf("deleted images = %v", env.assets.deleted)
	}
}

func TestCatalog_DeleteColorCascades(t *testing.T) {
	env := newAdminEnv(t)
	_, colorID, productID := env.seed(t)

	expectStatus(t, env.do(t, http.MethodDelete, "/admin/colors/"+colorID, ""), http.StatusNoContent)

	rec := env.do(t, http.MethodGet, "/admin/products/"+productID, "")
	expectStatus(t, rec, http.StatusOK)
	var p domain.Product
	if err := json.NewDecoder(rec.Body).Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(p.Variants) != 0 {
		t.Errorf("variants = %v, want none", p.Variants)
	}
	if len(env.assets.deleted) != 1 {
		t.Errorf("deleted images = %v, want 1", env.assets.deleted)
	}

	expectStatus(t, env.do(t, http.MethodDelete, "/admin/colors/"+colorID, ""), http.StatusNotFound)
}

func TestCatalog_ListProductsFilters(t *testing.T) {
	env := newAdminEnv(t)
	categoryID, _, _ := env.seed(t)

	rec := env.do(t, http.MethodPost, "/admin/products", `{"name":"Draft Coat","categoryId":"`+categoryID+`","price":5000}`)
	expectStatus(t, rec, http.StatusCreated)

	rec = env.do(t, http.MethodGet, "/admin/products?status=draft", "")
	expectStatus(t, rec, http.StatusOK)
	var products []domain.Product
	if err := json.NewDecoder(rec.Body).Decode(&products); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(products) != 1 || products[0].Name != "Draft Coat" {
		t.Errorf("products = %+v", products)
	}
}
