package jobs

import (
	"context"
	"fmt"

	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/email"
	"github.com/dukerupert/atelier/internal/notify"
)

// ConfirmationMailer sends order confirmation emails. *email.Service
// satisfies it.
type ConfirmationMailer interface {
	SendOrderConfirmation(ctx context.Context, data email.OrderConfirmationEmail) error
}

// ColorLookup resolves color IDs to display names.
type ColorLookup interface {
	Get(ctx context.Context, id string) (*domain.Color, error)
}

// OrderConfirmation turns order events into confirmation emails.
type OrderConfirmation struct {
	mailer ConfirmationMailer
	colors ColorLookup
}

func NewOrderConfirmation(mailer ConfirmationMailer, colors ColorLookup) *OrderConfirmation {
	return &OrderConfirmation{mailer: mailer, colors: colors}
}

// Handle is a notify.Handler.
func (j *OrderConfirmation) Handle(ctx context.Context, event notify.OrderPlacedEvent) error {
	return ProcessOrderConfirmation(ctx, event, j.mailer, j.colors)
}

// ProcessOrderConfirmation renders and sends the confirmation email for an
// order event. Events without a recipient are skipped.
func ProcessOrderConfirmation(ctx context.Context, event notify.OrderPlacedEvent, mailer ConfirmationMailer, colors ColorLookup) error {
	if event.Email == "" {
		return nil
	}

	names := make(map[string]string)
	items := make([]email.OrderItem, 0, len(event.Items))
	for _, it := range event.Items {
		color, ok := names[it.ColorID]
		if !ok {
			color = colorName(ctx, colors, it.ColorID)
			names[it.ColorID] = color
		}
		items = append(items, email.OrderItem{
			ProductName: it.ProductName,
			VariantName: fmt.Sprintf("%s / %s", color, it.Size),
			Quantity:    it.Quantity,
			PriceCents:  it.PriceAtPurchase,
			TotalCents:  it.LineTotal(),
			OnSale:      it.OnSale,
		})
	}

	addr := event.ShippingAddress
	data := email.OrderConfirmationEmail{
		OrderID:       event.OrderID,
		Email:         event.Email,
		CustomerName:  addr.FullName,
		OrderDate:     event.PlacedAt,
		Items:         items,
		TotalCents:    event.Total,
		PaymentMethod: paymentLabel(event.PaymentMethod),
		ShippingAddr: email.Address{
			Name:       addr.FullName,
			Line1:      addr.Line1,
			Line2:      addr.Line2,
			City:       addr.City,
			PostalCode: addr.PostalCode,
			Country:    addr.Country,
		},
	}

	if err := mailer.SendOrderConfirmation(ctx, data); err != nil {
		return domain.External(err, "jobs.ProcessOrderConfirmation", "Failed to send order confirmation")
	}
	return nil
}

// colorName falls back to the ID when the color is gone.
func colorName(ctx context.Context, colors ColorLookup, id string) string {
	if colors == nil {
		return id
	}
	c, err := colors.Get(ctx, id)
	if err != nil {
		return id
	}
	return c.Name
}

func paymentLabel(method string) string {
	switch domain.PaymentMethod(method) {
	case domain.PaymentCard:
		return "Card"
	case domain.PaymentCashOnDelivery:
		return "Cash on delivery"
	default:
		return method
	}
}
