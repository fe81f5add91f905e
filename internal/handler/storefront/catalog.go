package storefront

import (
	"net/http"

	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/handler"
	"github.com/dukerupert/atelier/internal/service"
)

// CatalogHandler serves the public catalog. Only active products and
// categories are visible.
type CatalogHandler struct {
	catalogService service.CatalogService
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalogService service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// productView adds the price a shopper pays right now.
type productView struct {
	domain.Product
	EffectivePrice int64 `json:"effectivePrice"`
}

func newProductView(p domain.Product) productView {
	return productView{Product: p, EffectivePrice: p.EffectivePrice()}
}

// ListProducts handles GET /products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalogService.ListProducts(r.Context(), domain.ProductFilter{
		Status:     domain.ProductStatusActive,
		CategoryID: r.URL.Query().Get("category"),
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, newProductView(p))
	}
	handler.WriteJSON(w, http.StatusOK, views)
}

// GetProduct handles GET /products/{id}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalogService.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if product.Status != domain.ProductStatusActive {
		handler.ErrorResponse(w, r, service.ErrProductNotFound)
		return
	}
	handler.WriteJSON(w, http.StatusOK, newProductView(*product))
}

// ListCategories handles GET /categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalogService.ListCategories(r.Context(), true)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, categories)
}

// ListColors handles GET /colors
func (h *CatalogHandler) ListColors(w http.ResponseWriter, r *http.Request) {
	colors, err := h.catalogService.ListColors(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, colors)
}
