package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/service"
)

func TestOrders_ListAndUpdateStatus(t *testing.T) {
	ctx := context.Background()
	env := newAdminEnv(t)
	_, colorID, productID := env.seed(t)

	if err := env.store.Addresses.Create(ctx, &domain.Address{
		ID: "addr-1", UserID: "u1", FullName: "Grace Hopper", Line1: "12 Rue de Rivoli", City: "Paris", PostalCode: "75001", Country: "FR",
	}); err != nil {
		t.Fatalf("seed address: %v", err)
	}
	order, err := env.orders.CreateOrder(ctx, "u1", service.CreateOrderParams{
		Items:             []service.OrderItemParams{{ProductID: productID, ColorID: colorID, Size: domain.SizeM, Quantity: 2}},
		ShippingAddressID: "addr-1",
		PaymentMethod:     domain.PaymentCashOnDelivery,
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	rec := env.do(t, http.MethodGet, "/admin/orders", "")
	expectStatus(t, rec, http.StatusOK)
	var orders []domain.Order
	if err := json.NewDecoder(rec.Body).Decode(&orders); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(orders) != 1 || orders[0].Total != 1800 {
		t.Fatalf("orders = %+v", orders)
	}

	rec = env.do(t, http.MethodPatch, "/admin/orders/"+order.ID+"/status", `{"status":"cancelled"}`)
	expectStatus(t, rec, http.StatusOK)

	p, err := env.store.Products.Get(ctx, productID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if stock, _ := p.Stock(colorID, domain.SizeM); stock != 5 {
		t.Errorf("stock after cancel = %d, want 5", stock)
	}

	expectStatus(t, env.do(t, http.MethodPatch, "/admin/orders/"+order.ID+"/status", `{"status":"shipped"}`), http.StatusConflict)
	expectStatus(t, env.do(t, http.MethodPatch, "/admin/orders/"+order.ID+"/status", `{}`), http.StatusBadRequest)
	expectStatus(t, env.do(t, http.MethodPatch, "/admin/orders/missing/status", `{"status":"confirmed"}`), http.StatusNotFound)
}
