package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/atelier/internal/domain"
)

type fakePublisher struct {
	subject string
	data    []byte
	err     error
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	p.subject = subject
	p.data = data
	return p.err
}

func testOrder() *domain.Order {
	return &domain.Order{
		ID:     "ord-1",
		UserID: "u1",
		Items: []domain.OrderItem{
			{ProductID: "p1", ProductName: "Linen Shirt", ColorID: "red", Size: domain.SizeM, Quantity: 2, PriceAtPurchase: 640, OnSale: true},
		},
		ShippingAddress: domain.Address{ID: "addr-1", FullName: "Ada Lovelace", City: "Paris"},
		PaymentMethod:   domain.PaymentCard,
		Status:          domain.OrderStatusPending,
		Total:           1280,
		CreatedAt:       time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNATSNotifier_PublishesJSON(t *testing.T) {
	pub := &fakePublisher{}
	n := NewNATSNotifier(pub, nil, nil)

	err := n.OrderPlaced(context.Background(), NewOrderPlacedEvent(testOrder(), "ada@example.com"))
	require.NoError(t, err)

	assert.Equal(t, SubjectOrderPlaced, pub.subject)

	var got OrderPlacedEvent
	require.NoError(t, json.Unmarshal(pub.data, &got))
	assert.Equal(t, "ord-1", got.OrderID)
	assert.Equal(t, "ada@example.com", got.Email)
	assert.Equal(t, "card", got.PaymentMethod)
	assert.Equal(t, int64(1280), got.Total)
	require.Len(t, got.Items, 1)
	assert.Equal(t, int64(640), got.Items[0].PriceAtPurchase)
	assert.True(t, got.PlacedAt.Equal(testOrder().CreatedAt))
}

func TestNATSNotifier_PublishError(t *testing.T) {
	n := NewNATSNotifier(&fakePublisher{err: errors.New("nats: connection closed")}, nil, nil)

	err := n.OrderPlaced(context.Background(), NewOrderPlacedEvent(testOrder(), ""))
	assert.Error(t, err)
}

func TestLogNotifier_DeliversInBackground(t *testing.T) {
	var calls atomic.Int32
	var seen OrderPlacedEvent
	n := NewLogNotifier(func(ctx context.Context, event OrderPlacedEvent) error {
		calls.Add(1)
		seen = event
		return errors.New("smtp down")
	}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, n.OrderPlaced(ctx, NewOrderPlacedEvent(testOrder(), "ada@example.com")))
	cancel()
	n.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "ord-1", seen.OrderID)
}

func TestLogNotifier_NoHandler(t *testing.T) {
	n := NewLogNotifier(nil, nil, nil)
	assert.NoError(t, n.OrderPlaced(context.Background(), NewOrderPlacedEvent(testOrder(), "")))
	n.Wait()
}
