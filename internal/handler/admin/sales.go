package admin

import (
	"net/http"
	"time"

	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/handler"
	"github.com/dukerupert/atelier/internal/service"
)

// SaleHandler manages sales. Activation and expiry are driven by the
// lifecycle scheduler, not by these routes.
type SaleHandler struct {
	saleService service.SaleService
}

// NewSaleHandler creates a new sale handler
func NewSaleHandler(saleService service.SaleService) *SaleHandler {
	return &SaleHandler{saleService: saleService}
}

type saleEntryRequest struct {
	ProductID         string  `json:"productId" validate:"required"`
	SalePrice         int64   `json:"salePrice" validate:"gte=0"`
	SalePriceDiscount float64 `json:"salePriceDiscount" validate:"gte=0,lte=100"`
}

type createSaleRequest struct {
	Name      string             `json:"name" validate:"required,max=200"`
	StartDate time.Time          `json:"startDate" validate:"required"`
	EndDate   time.Time          `json:"endDate" validate:"required"`
	Status    domain.SaleStatus  `json:"status" validate:"omitempty,oneof=scheduled active inactive expired"`
	Products  []saleEntryRequest `json:"products" validate:"dive"`
}

type updateSaleRequest struct {
	Name      *string             `json:"name" validate:"omitempty,min=1,max=200"`
	StartDate *time.Time          `json:"startDate"`
	EndDate   *time.Time          `json:"endDate"`
	Status    *domain.SaleStatus  `json:"status" validate:"omitempty,oneof=scheduled active inactive expired"`
	Products  *[]saleEntryRequest `json:"products" validate:"omitempty,dive"`
}

func entryParams(entries []saleEntryRequest) []service.SaleEntryParams {
	out := make([]service.SaleEntryParams, 0, len(entries))
	for _, e := range entries {
		out = append(out, service.SaleEntryParams{
			ProductID:         e.ProductID,
			SalePrice:         e.SalePrice,
			SalePriceDiscount: e.SalePriceDiscount,
		})
	}
	return out
}

// List handles GET /admin/sales
func (h *SaleHandler) List(w http.ResponseWriter, r *http.Request) {
	sales, err := h.saleService.ListSales(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, sales)
}

// Get handles GET /admin/sales/{id}
func (h *SaleHandler) Get(w http.ResponseWriter, r *http.Request) {
	sale, err := h.saleService.GetSale(r.Context(), r.PathValue("id"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, sale)
}

// Create handles POST /admin/sales
func (h *SaleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSaleRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	sale, err := h.saleService.CreateSale(r.Context(), service.CreateSaleParams{
		Name:      req.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Status:    req.Status,
		Products:  entryParams(req.Products),
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusCreated, sale)
}

// Update handles PATCH /admin/sales/{id}
func (h *SaleHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateSaleRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	params := service.UpdateSaleParams{
		Name:      req.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Status:    req.Status,
	}
	if req.Products != nil {
		entries := entryParams(*req.Products)
		params.Products = &entries
	}

	sale, err := h.saleService.UpdateSale(r.Context(), r.PathValue("id"), params)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, sale)
}

// Delete handles DELETE /admin/sales/{id}
func (h *SaleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.saleService.DeleteSale(r.Context(), r.PathValue("id")); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
