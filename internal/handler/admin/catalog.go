package admin

import (
	"net/http"

	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/handler"
	"github.com/dukerupert/atelier/internal/service"
)

// CatalogHandler manages categories, colors and products.
type CatalogHandler struct {
	catalogService service.CatalogService
}

// NewCatalogHandler creates a new admin catalog handler
func NewCatalogHandler(catalogService service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// =============================================================================
// CATEGORIES
// =============================================================================

type createCategoryRequest struct {
	Name   string `json:"name" validate:"required,max=100"`
	Slug   string `json:"slug" validate:"max=100"`
	Active bool   `json:"active"`
}

type updateCategoryRequest struct {
	Name   *string `json:"name" validate:"omitempty,min=1,max=100"`
	Slug   *string `json:"slug" validate:"omitempty,max=100"`
	Active *bool   `json:"active"`
}

// ListCategories handles GET /admin/categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalogService.ListCategories(r.Context(), false)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, categories)
}

// CreateCategory handles POST /admin/categories
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	category, err := h.catalogService.CreateCategory(r.Context(), service.CreateCategoryParams{
		Name:   req.Name,
		Slug:   req.Slug,
		Active: req.Active,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusCreated, category)
}

// UpdateCategory handles PATCH /admin/categories/{id}
func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req updateCategoryRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	category, err := h.catalogService.UpdateCategory(r.Context(), r.PathValue("id"), service.UpdateCategoryParams{
		Name:   req.Name,
		Slug:   req.Slug,
		Active: req.Active,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, category)
}

// DeleteCategory handles DELETE /admin/categories/{id}
func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.catalogService.DeleteCategory(r.Context(), r.PathValue("id")); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// COLORS
// =============================================================================

type createColorRequest struct {
	Name  string `json:"name" validate:"required,max=50"`
	Value string `json:"value" validate:"required,max=50"`
}

type updateColorRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=50"`
	Value *string `json:"value" validate:"omitempty,min=1,max=50"`
}

// ListColors handles GET /admin/colors
func (h *CatalogHandler) ListColors(w http.ResponseWriter, r *http.Request) {
	colors, err := h.catalogService.ListColors(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, colors)
}

// CreateColor handles POST /admin/colors
func (h *CatalogHandler) CreateColor(w http.ResponseWriter, r *http.Request) {
	var req createColorRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	color, err := h.catalogService.CreateColor(r.Context(), service.CreateColorParams{
		Name:  req.Name,
		Value: req.Value,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusCreated, color)
}

// UpdateColor handles PATCH /admin/colors/{id}
func (h *CatalogHandler) UpdateColor(w http.ResponseWriter, r *http.Request) {
	var req updateColorRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	color, err := h.catalogService.UpdateColor(r.Context(), r.PathValue("id"), service.UpdateColorParams{
		Name:  req.Name,
		Value: req.Value,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, color)
}

// DeleteColor handles DELETE /admin/colors/{id}
//
// Every product variant of the color is removed along with its images. A
// failure part way leaves the color in place; repeating the request resumes.
func (h *CatalogHandler) DeleteColor(w http.ResponseWriter, r *http.Request) {
	if err := h.catalogService.DeleteColor(r.Context(), r.PathValue("id")); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PRODUCTS
// =============================================================================

type createProductRequest struct {
	Name            string               `json:"name" validate:"required,max=200"`
	Description     string               `json:"description"`
	CategoryID      string               `json:"categoryId" validate:"required"`
	Price           int64                `json:"price" validate:"gte=0"`
	DiscountPercent float64              `json:"discountPercent" validate:"gte=0,lte=100"`
	Variants        []domain.Variant     `json:"variants"`
	Status          domain.ProductStatus `json:"status" validate:"omitempty,oneof=draft active archived"`
}

type updateProductRequest struct {
	Name            *string               `json:"name" validate:"omitempty,min=1,max=200"`
	Description     *string               `json:"description"`
	CategoryID      *string               `json:"categoryId" validate:"omitempty,min=1"`
	Price           *int64                `json:"price" validate:"omitempty,gte=0"`
	DiscountPercent *float64              `json:"discountPercent" validate:"omitempty,gte=0,lte=100"`
	Variants        *[]domain.Variant     `json:"variants"`
	Status          *domain.ProductStatus `json:"status" validate:"omitempty,oneof=draft active archived"`
}

// ListProducts handles GET /admin/products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products, err := h.catalogService.ListProducts(r.Context(), domain.ProductFilter{
		Status:     domain.ProductStatus(q.Get("status")),
		CategoryID: q.Get("category"),
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, products)
}

// GetProduct handles GET /admin/products/{id}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalogService.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, product)
}

// CreateProduct handles POST /admin/products
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	product, err := h.catalogService.CreateProduct(r.Context(), service.CreateProductParams{
		Name:            req.Name,
		Description:     req.Description,
		CategoryID:      req.CategoryID,
		Price:           req.Price,
		DiscountPercent: req.DiscountPercent,
		Variants:        req.Variants,
		Status:          req.Status,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusCreated, product)
}

// UpdateProduct handles PATCH /admin/products/{id}
func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req updateProductRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	product, err := h.catalogService.UpdateProduct(r.Context(), r.PathValue("id"), service.UpdateProductParams{
		Name:            req.Name,
		Description:     req.Description,
		CategoryID:      req.CategoryID,
		Price:           req.Price,
		DiscountPercent: req.DiscountPercent,
		Variants:        req.Variants,
		Status:          req.Status,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, product)
}

// DeleteProduct handles DELETE /admin/products/{id}
func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.catalogService.DeleteProduct(r.Context(), r.PathValue("id")); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
