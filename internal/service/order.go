package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dukerupert/atelier/internal/clock"
	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/telemetry"
)

// OrderService provides business logic for order operations
type OrderService interface {
	// CreateOrder prices the items at their current effective prices and
	// places the order, taking stock for every line in one atomic step.
	CreateOrder(ctx context.Context, userID string, params CreateOrderParams) (*domain.Order, error)

	// GetOrder returns an order visible to the caller: their own, or any
	// order for an admin.
	GetOrder(ctx context.Context, caller *domain.Identity, orderID string) (*domain.Order, error)

	// ListOrders returns the user's orders, newest first.
	ListOrders(ctx context.Context, userID string) ([]domain.Order, error)

	// ListAllOrders returns every order, newest first.
	ListAllOrders(ctx context.Context) ([]domain.Order, error)

	// UpdateStatus moves an order along its fulfillment path. Cancelling
	// returns the order's quantities to stock.
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error)
}

// OrderItemParams is one requested order line.
type OrderItemParams struct {
	ProductID string
	ColorID   string
	Size      domain.Size
	Quantity  int
}

// CreateOrderParams contains parameters for placing an order.
type CreateOrderParams struct {
	Items             []OrderItemParams
	ShippingAddressID string
	PaymentMethod     domain.PaymentMethod
}

type orderService struct {
	orders    domain.OrderRepository
	products  domain.ProductRepository
	addresses domain.AddressRepository
	clock     clock.Clock
	metrics   *telemetry.BusinessMetrics
	logger    *slog.Logger
}

// NewOrderService creates a new OrderService instance
func NewOrderService(store domain.Store, clk clock.Clock, metrics *telemetry.BusinessMetrics, logger *slog.Logger) OrderService {
	if logger == nil {
		logger = slog.Default()
	}
	return &orderService{
		orders:    store.Orders,
		products:  store.Products,
		addresses: store.Addresses,
		clock:     clk,
		metrics:   metrics,
		logger:    logger,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, userID string, params CreateOrderParams) (*domain.Order, error) {
	const op = "order.create"

	if len(params.Items) == 0 {
		return nil, OrderValidationError("items", "at least one item is required")
	}
	if !params.PaymentMethod.Valid() {
		return nil, OrderValidationError("paymentMethod", "must be cash_on_delivery or card")
	}

	if params.ShippingAddressID == "" {
		return nil, OrderValidationError("shippingAddressId", "is required")
	}
	addr, err := s.addresses.Get(ctx, params.ShippingAddressID)
	if err != nil && !domain.IsCode(err, domain.ENOTFOUND) {
		return nil, domain.Internal(err, op, "failed to load address")
	}
	if err != nil || addr.UserID != userID {
		return nil, OrderValidationError("shippingAddressId", "address not found")
	}

	items := make([]domain.OrderItem, 0, len(params.Items))
	var total int64
	for i, it := range params.Items {
		field := fmt.Sprintf("items[%d]", i)
		if it.Quantity < 1 {
			return nil, OrderValidationError(field, "quantity must be at least 1")
		}

		p, err := s.products.Get(ctx, it.ProductID)
		if err != nil {
			if domain.IsCode(err, domain.ENOTFOUND) {
				return nil, OrderValidationError(field, "product not found")
			}
			return nil, domain.Internal(err, op, "failed to load product")
		}
		if p.Status != domain.ProductStatusActive {
			return nil, OrderValidationError(field, "product is not available")
		}
		if _, ok := p.Stock(it.ColorID, it.Size); !ok {
			return nil, OrderValidationError(field, "variant not found")
		}

		// Sale price replaces list price; the discounts never stack.
		item := domain.OrderItem{
			ProductID:       p.ID,
			ProductName:     p.Name,
			ColorID:         it.ColorID,
			Size:            it.Size,
			Quantity:        it.Quantity,
			PriceAtPurchase: p.EffectivePrice(),
			OnSale:          p.SaleType,
		}
		items = append(items, item)
		total += item.LineTotal()
	}

	now := s.clock.Now()
	order := &domain.Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		Items:           items,
		ShippingAddress: *addr,
		PaymentMethod:   params.PaymentMethod,
		Status:          domain.OrderStatusPending,
		Total:           total,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.orders.Create(ctx, order, order.StockAdjustments(false)); err != nil {
		if _, ok := domain.AvailableStock(err); ok {
			s.metrics.RecordStockRejection("order")
			return nil, err
		}
		if domain.IsCode(err, domain.ENOTFOUND) {
			return nil, OrderValidationError("items", "product not found")
		}
		return nil, domain.Internal(err, op, "failed to create order")
	}

	s.metrics.RecordOrder(string(order.PaymentMethod), order.Total)
	s.logger.Info("order created", "order_id", order.ID, "user_id", userID, "items", len(items), "total", total)
	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, caller *domain.Identity, orderID string) (*domain.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, notFound(err, ErrOrderNotFound)
	}
	if caller == nil || (!caller.IsAdmin() && order.UserID != caller.UserID) {
		return nil, ErrForbidden
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, "order.list", "failed to list orders")
	}
	return orders, nil
}

func (s *orderService) ListAllOrders(ctx context.Context) ([]domain.Order, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, domain.Internal(err, "order.list_all", "failed to list orders")
	}
	return orders, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	const op = "order.update_status"

	if !status.Valid() {
		return nil, domain.NewValidationError(op, "status", "is not a valid status")
	}

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, notFound(err, ErrOrderNotFound)
	}
	if !order.Status.CanTransition(status) {
		return nil, domain.WrapError(ErrInvalidStatusChange, domain.ECONFLICT, op,
			fmt.Sprintf("cannot move order from %s to %s", order.Status, status))
	}

	var adjustments []domain.StockAdjustment
	if status == domain.OrderStatusCancelled {
		adjustments = order.StockAdjustments(true)
	}

	updated, err := s.orders.UpdateStatus(ctx, orderID, order.Status, status, adjustments)
	if err != nil {
		if domain.IsCode(err, domain.ECONFLICT) {
			return nil, err
		}
		return nil, domain.Internal(err, op, "failed to update order status")
	}

	s.logger.Info("order status updated", "order_id", orderID, "from", order.Status, "to", status)
	return updated, nil
}
