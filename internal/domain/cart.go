package domain

import "time"

// =============================================================================
// CART DOMAIN ERRORS
// =============================================================================

var (
	ErrCartItemNotFound = &Error{Code: ENOTFOUND, Message: "Cart item not found"}
	ErrInvalidQuantity  = &Error{Code: EINVALID, Message: "Quantity must be at least 1"}
	ErrProductNotActive = &Error{Code: EINVALID, Message: "Product is not available for purchase"}
)

// CartItem is one line of a user's cart. A user has a single cart; an item is
// unique per (product, color, size).
type CartItem struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ProductID string    `json:"productId"`
	ColorID   string    `json:"colorId"`
	Size      Size      `json:"size"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Matches reports whether the item is for the given variant size.
func (c *CartItem) Matches(productID, colorID string, size Size) bool {
	return c.ProductID == productID && c.ColorID == colorID && c.Size == size
}

// CartLine is a cart item resolved against the current catalog for display.
type CartLine struct {
	CartItem
	ProductName string `json:"productName"`
	UnitPrice   int64  `json:"unitPrice"`
	OnSale      bool   `json:"onSale"`
	LineTotal   int64  `json:"lineTotal"`
	Available   int    `json:"available"`
}

// CartSummary aggregates cart lines with calculated totals.
type CartSummary struct {
	Items     []CartLine `json:"items"`
	Subtotal  int64      `json:"subtotal"`
	ItemCount int        `json:"itemCount"`
}
