package storefront

import (
	"net/http"

	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/handler"
	"github.com/dukerupert/atelier/internal/service"
)

// CartHandler handles all cart-related storefront routes
type CartHandler struct {
	cartService service.CartService
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cartService service.CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

type addCartItemRequest struct {
	ProductID string      `json:"productId" validate:"required"`
	ColorID   string      `json:"colorId" validate:"required"`
	Size      domain.Size `json:"size" validate:"required"`
	Quantity  int         `json:"quantity" validate:"gte=1"`
}

type setQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=1"`
}

// View handles GET /cart
func (h *CartHandler) View(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	summary, err := h.cartService.GetCart(r.Context(), identity.UserID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, summary)
}

// Add handles POST /cart
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req addCartItemRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	item, err := h.cartService.AddItem(r.Context(), identity.UserID, service.AddCartItemParams{
		ProductID: req.ProductID,
		ColorID:   req.ColorID,
		Size:      req.Size,
		Quantity:  req.Quantity,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusCreated, item)
}

// SetQuantity handles PATCH /cart/items/{id}
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req setQuantityRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	item, err := h.cartService.SetQuantity(r.Context(), identity.UserID, r.PathValue("id"), req.Quantity)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, item)
}

// Remove handles DELETE /cart/items/{id}
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := h.cartService.RemoveItem(r.Context(), identity.UserID, r.PathValue("id")); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Clear handles DELETE /cart/clear
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := h.cartService.Clear(r.Context(), identity.UserID); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
