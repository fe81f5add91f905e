package admin

import (
	"net/http"

	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/handler"
	"github.com/dukerupert/atelier/internal/service"
)

// OrderHandler lists every order and moves orders through fulfillment.
type OrderHandler struct {
	orderService service.OrderService
}

// NewOrderHandler creates a new admin order handler
func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status" validate:"required"`
}

// List handles GET /admin/orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderService.ListAllOrders(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, orders)
}

// UpdateStatus handles PATCH /admin/orders/{id}/status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	order, err := h.orderService.UpdateStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, order)
}
