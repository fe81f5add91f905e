package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/email"
	"github.com/dukerupert/atelier/internal/memstore"
	"github.com/dukerupert/atelier/internal/notify"
)

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendOrderConfirmation(ctx context.Context, data email.OrderConfirmationEmail) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

func testEvent() notify.OrderPlacedEvent {
	return notify.OrderPlacedEvent{
		OrderID: "ord-1",
		UserID:  "u1",
		Email:   "ada@example.com",
		Items: []domain.OrderItem{
			{ProductName: "Linen Shirt", ColorID: "navy", Size: domain.SizeM, Quantity: 2, PriceAtPurchase: 640, OnSale: true},
			{ProductName: "Scarf", ColorID: "gone", Size: domain.SizeS, Quantity: 1, PriceAtPurchase: 500},
		},
		ShippingAddress: domain.Address{FullName: "Ada Lovelace", Line1: "12 Rue de Rivoli", City: "Paris", PostalCode: "75001", Country: "FR"},
		PaymentMethod:   string(domain.PaymentCashOnDelivery),
		Total:           1780,
		PlacedAt:        time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestProcessOrderConfirmation(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewStore()
	require.NoError(t, store.Colors.Create(ctx, &domain.Color{ID: "navy", Name: "Navy", Value: "#001f3f"}))

	mailer := &mockMailer{}
	mailer.On("SendOrderConfirmation", mock.Anything, mock.MatchedBy(func(data email.OrderConfirmationEmail) bool {
		return data.Email == "ada@example.com" &&
			data.CustomerName == "Ada Lovelace" &&
			data.TotalCents == 1780 &&
			data.PaymentMethod == "Cash on delivery" &&
			len(data.Items) == 2 &&
			data.Items[0].VariantName == "Navy / M" &&
			data.Items[0].TotalCents == 1280 &&
			data.Items[1].VariantName == "gone / S" &&
			data.ShippingAddr.City == "Paris"
	})).Return(nil).Once()

	job := NewOrderConfirmation(mailer, store.Colors)
	require.NoError(t, job.Handle(ctx, testEvent()))
	mailer.AssertExpectations(t)
}

func TestProcessOrderConfirmation_NoRecipient(t *testing.T) {
	mailer := &mockMailer{}
	event := testEvent()
	event.Email = ""

	require.NoError(t, ProcessOrderConfirmation(context.Background(), event, mailer, nil))
	mailer.AssertNotCalled(t, "SendOrderConfirmation", mock.Anything, mock.Anything)
}

func TestProcessOrderConfirmation_SendFailure(t *testing.T) {
	mailer := &mockMailer{}
	mailer.On("SendOrderConfirmation", mock.Anything, mock.Anything).Return(errors.New("dial tcp: refused"))

	err := ProcessOrderConfirmation(context.Background(), testEvent(), mailer, nil)
	require.Error(t, err)
	assert.Equal(t, domain.EEXTERNAL, domain.ErrorCode(err))
}
