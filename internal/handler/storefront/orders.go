package storefront

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/handler"
	"github.com/dukerupert/atelier/internal/middleware"
	"github.com/dukerupert/atelier/internal/notify"
	"github.com/dukerupert/atelier/internal/service"
)

// OrderHandler places and lists a customer's orders.
type OrderHandler struct {
	orderService service.OrderService
	cartService  service.CartService
	notifier     notify.Notifier
	logger       *slog.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService service.OrderService, cartService service.CartService, notifier notify.Notifier, logger *slog.Logger) *OrderHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderHandler{
		orderService: orderService,
		cartService:  cartService,
		notifier:     notifier,
		logger:       logger,
	}
}

type orderItemRequest struct {
	ProductID string      `json:"productId" validate:"required"`
	ColorID   string      `json:"colorId" validate:"required"`
	Size      domain.Size `json:"size" validate:"required"`
	Quantity  int         `json:"quantity"`
}

type createOrderRequest struct {
	Items             []orderItemRequest   `json:"items" validate:"required,min=1,dive"`
	ShippingAddressID string               `json:"shippingAddressId"`
	PaymentMethod     domain.PaymentMethod `json:"paymentMethod"`
}

// Create handles POST /orders
//
// The order is placed first. Clearing the cart and announcing the order
// happen afterwards and never fail the request.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	params := service.CreateOrderParams{
		Items:             make([]service.OrderItemParams, 0, len(req.Items)),
		ShippingAddressID: req.ShippingAddressID,
		PaymentMethod:     req.PaymentMethod,
	}
	for _, it := range req.Items {
		params.Items = append(params.Items, service.OrderItemParams{
			ProductID: it.ProductID,
			ColorID:   it.ColorID,
			Size:      it.Size,
			Quantity:  it.Quantity,
		})
	}

	order, err := h.orderService.CreateOrder(ctx, identity.UserID, params)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	logger := middleware.GetLogger(ctx, h.logger)
	if err := h.cartService.Clear(ctx, identity.UserID); err != nil {
		logger.Warn("failed to clear cart after order", "order_id", order.ID, "error", err)
	}
	if h.notifier != nil {
		if err := h.notifier.OrderPlaced(ctx, notify.NewOrderPlacedEvent(order, identity.Email)); err != nil {
			logger.Warn("failed to publish order placed event", "order_id", order.ID, "error", err)
		}
	}

	handler.WriteJSON(w, http.StatusCreated, order)
}

// List handles GET /orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	orders, err := h.orderService.ListOrders(r.Context(), identity.UserID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, orders)
}

// Get handles GET /orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), identity, r.PathValue("id"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, order)
}
