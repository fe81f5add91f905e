package email

import (
	"fmt"
	"time"
)

// OrderConfirmationEmail is sent to the customer once an order is placed.
type OrderConfirmationEmail struct {
	OrderID       string
	Email         string
	CustomerName  string
	OrderDate     time.Time
	Items         []OrderItem
	TotalCents    int64
	PaymentMethod string
	ShippingAddr  Address
}

func (e OrderConfirmationEmail) Subject() string {
	return "Order Confirmation - " + e.OrderID
}

func (e OrderConfirmationEmail) TemplateName() string {
	return "order_confirmation"
}

// OrderItem represents a line item in an order email
type OrderItem struct {
	ProductName string
	VariantName string // e.g. "Navy / M"
	Quantity    int
	PriceCents  int64
	TotalCents  int64
	OnSale      bool
}

// Address represents a shipping address
type Address struct {
	Name       string
	Line1      string
	Line2      string // Optional
	City       string
	PostalCode string
	Country    string
}

// formatCents renders minor units as a price, e.g. 1299 -> "12.99".
func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
