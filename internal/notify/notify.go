// Package notify announces storefront events to whatever delivers them.
// Publishing is fire-and-forget: callers log a failed publish and move on.
package notify

import (
	"context"
	"time"

	"github.com/dukerupert/atelier/internal/domain"
)

// SubjectOrderPlaced is the NATS subject order events are published on.
const SubjectOrderPlaced = "atelier.orders.placed"

// Notifier publishes storefront events.
type Notifier interface {
	OrderPlaced(ctx context.Context, event OrderPlacedEvent) error
}

// Handler consumes an order event, e.g. by sending the confirmation email.
type Handler func(ctx context.Context, event OrderPlacedEvent) error

// OrderPlacedEvent is the wire form of a newly placed order.
type OrderPlacedEvent struct {
	OrderID         string             `json:"orderId"`
	UserID          string             `json:"userId"`
	Email           string             `json:"email"`
	Items           []domain.OrderItem `json:"items"`
	ShippingAddress domain.Address     `json:"shippingAddress"`
	PaymentMethod   string             `json:"paymentMethod"`
	Total           int64              `json:"total"`
	PlacedAt        time.Time          `json:"placedAt"`
}

// NewOrderPlacedEvent builds the event for order, addressed to email.
func NewOrderPlacedEvent(order *domain.Order, email string) OrderPlacedEvent {
	return OrderPlacedEvent{
		OrderID:         order.ID,
		UserID:          order.UserID,
		Email:           email,
		Items:           order.Items,
		ShippingAddress: order.ShippingAddress,
		PaymentMethod:   string(order.PaymentMethod),
		Total:           order.Total,
		PlacedAt:        order.CreatedAt,
	}
}
