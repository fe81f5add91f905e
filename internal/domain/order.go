package domain

import "time"

// Order-related domain errors.
var (
	ErrOrderNotFound          = &Error{Code: ENOTFOUND, Message: "Order not found"}
	ErrEmptyOrder             = &Error{Code: EINVALID, Message: "Order has no items"}
	ErrInvalidStatusChange    = &Error{Code: ECONFLICT, Message: "Order status transition is not allowed"}
	ErrInvalidPaymentMethod   = &Error{Code: EINVALID, Message: "Payment method is not supported"}
	ErrMissingShippingAddress = &Error{Code: EINVALID, Message: "Shipping address is required"}
)

// OrderStatus is the fulfillment state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusDelivered},
}

// CanTransition reports whether an order may move from s to next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// PaymentMethod is recorded on the order. No capture happens here.
type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentCard           PaymentMethod = "card"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCashOnDelivery || m == PaymentCard
}

// Address is a shipping address owned by a user.
type Address struct {
	ID         string `json:"id"`
	UserID     string `json:"userId"`
	FullName   string `json:"fullName"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// OrderItem is a purchased line. PriceAtPurchase is frozen at placement.
type OrderItem struct {
	ProductID       string `json:"productId"`
	ProductName     string `json:"productName"`
	ColorID         string `json:"colorId"`
	Size            Size   `json:"size"`
	Quantity        int    `json:"quantity"`
	PriceAtPurchase int64  `json:"priceAtPurchase"`
	OnSale          bool   `json:"onSale"`
}

// LineTotal is PriceAtPurchase times Quantity.
func (i OrderItem) LineTotal() int64 {
	return i.PriceAtPurchase * int64(i.Quantity)
}

// Order is a placed order. Its total is the sum of its line totals and is
// never rewritten after creation.
type Order struct {
	ID              string        `json:"id"`
	UserID          string        `json:"userId"`
	Items           []OrderItem   `json:"items"`
	ShippingAddress Address       `json:"shippingAddress"`
	PaymentMethod   PaymentMethod `json:"paymentMethod"`
	Status          OrderStatus   `json:"status"`
	Total           int64         `json:"total"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// StockAdjustments returns the stock deltas for the order's items, negated
// when the order is being placed and positive when restocking.
func (o *Order) StockAdjustments(restock bool) []StockAdjustment {
	sign := -1
	if restock {
		sign = 1
	}
	adj := make([]StockAdjustment, 0, len(o.Items))
	for _, it := range o.Items {
		adj = append(adj, StockAdjustment{
			ProductID: it.ProductID,
			ColorID:   it.ColorID,
			Size:      it.Size,
			Delta:     sign * it.Quantity,
		})
	}
	return adj
}

// StockAdjustment is a signed change to one variant size's stock.
type StockAdjustment struct {
	ProductID string
	ColorID   string
	Size      Size
	Delta     int
}
