package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dukerupert/atelier/internal/clock"
	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/telemetry"
)

// CartService provides business logic for shopping cart operations.
//
// Stock is only checked here, never reserved: two shoppers may both hold the
// last unit in their carts. Order placement is where stock is taken.
type CartService interface {
	GetCart(ctx context.Context, userID string) (*domain.CartSummary, error)
	AddItem(ctx context.Context, userID string, params AddCartItemParams) (*domain.CartItem, error)
	SetQuantity(ctx context.Context, userID, itemID string, quantity int) (*domain.CartItem, error)
	RemoveItem(ctx context.Context, userID, itemID string) error
	Clear(ctx context.Context, userID string) error
}

// AddCartItemParams identifies the variant size to add.
type AddCartItemParams struct {
	ProductID string
	ColorID   string
	Size      domain.Size
	Quantity  int
}

type cartService struct {
	carts    domain.CartRepository
	products domain.ProductRepository
	clock    clock.Clock
	locks    *keyedMutex
	metrics  *telemetry.BusinessMetrics
	logger   *slog.Logger
}

// NewCartService creates a CartService.
func NewCartService(store domain.Store, clk clock.Clock, metrics *telemetry.BusinessMetrics, logger *slog.Logger) CartService {
	if logger == nil {
		logger = slog.Default()
	}
	return &cartService{
		carts:    store.Carts,
		products: store.Products,
		clock:    clk,
		locks:    newKeyedMutex(),
		metrics:  metrics,
		logger:   logger,
	}
}

// GetCart returns the user's cart priced at current effective prices.
// Lines whose product or variant disappeared are returned with zero
// availability and no price.
func (s *cartService) GetCart(ctx context.Context, userID string) (*domain.CartSummary, error) {
	items, err := s.carts.ListItems(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, "cart.get", "failed to load cart")
	}

	summary := &domain.CartSummary{Items: make([]domain.CartLine, 0, len(items))}
	for _, it := range items {
		line := domain.CartLine{CartItem: it}
		p, err := s.products.Get(ctx, it.ProductID)
		switch {
		case err == nil:
			line.ProductName = p.Name
			line.UnitPrice = p.EffectivePrice()
			line.OnSale = p.SaleType
			line.LineTotal = line.UnitPrice * int64(it.Quantity)
			line.Available, _ = p.Stock(it.ColorID, it.Size)
		case domain.IsCode(err, domain.ENOTFOUND):
			s.logger.Warn("cart item references missing product", "user_id", userID, "product_id", it.ProductID)
		default:
			return nil, domain.Internal(err, "cart.get", "failed to load product")
		}
		summary.Items = append(summary.Items, line)
		summary.Subtotal += line.LineTotal
		summary.ItemCount += it.Quantity
	}
	return summary, nil
}

// AddItem adds quantity of a variant size to the cart. If the cart already
// holds that variant size, the stock check applies to the combined quantity
// and the existing line is incremented.
func (s *cartService) AddItem(ctx context.Context, userID string, params AddCartItemParams) (*domain.CartItem, error) {
	const op = "cart.add"

	if params.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	p, err := s.products.Get(ctx, params.ProductID)
	if err != nil {
		return nil, notFound(err, ErrProductNotFound)
	}
	if p.Status != domain.ProductStatusActive {
		return nil, ErrProductNotActive
	}
	stock, ok := p.Stock(params.ColorID, params.Size)
	if !ok {
		return nil, ErrVariantNotFound
	}

	items, err := s.carts.ListItems(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load cart")
	}
	var existing *domain.CartItem
	for i := range items {
		if items[i].Matches(params.ProductID, params.ColorID, params.Size) {
			existing = &items[i]
			break
		}
	}

	want := params.Quantity
	if existing != nil {
		want += existing.Quantity
	}
	if want > stock {
		s.metrics.RecordStockRejection("cart")
		return nil, domain.InsufficientStock(op, p.ID, params.ColorID, params.Size, want, stock)
	}

	now := s.clock.Now()
	if existing != nil {
		existing.Quantity = want
		existing.UpdatedAt = now
		if err := s.carts.UpdateItem(ctx, existing); err != nil {
			return nil, domain.Internal(err, op, "failed to update cart item")
		}
		return existing, nil
	}

	item := &domain.CartItem{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProductID: params.ProductID,
		ColorID:   params.ColorID,
		Size:      params.Size,
		Quantity:  params.Quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.carts.AddItem(ctx, item); err != nil {
		return nil, domain.Internal(err, op, "failed to add cart item")
	}
	return item, nil
}

// SetQuantity replaces an item's quantity after checking current stock. On
// any failure the stored quantity is left as it was.
func (s *cartService) SetQuantity(ctx context.Context, userID, itemID string, quantity int) (*domain.CartItem, error) {
	const op = "cart.set_quantity"

	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	p, err := s.products.Get(ctx, item.ProductID)
	if err != nil {
		return nil, notFound(err, ErrProductNotFound)
	}
	stock, ok := p.Stock(item.ColorID, item.Size)
	if !ok {
		return nil, ErrVariantNotFound
	}
	if quantity > stock {
		s.metrics.RecordStockRejection("cart")
		return nil, domain.InsufficientStock(op, p.ID, item.ColorID, item.Size, quantity, stock)
	}

	item.Quantity = quantity
	item.UpdatedAt = s.clock.Now()
	if err := s.carts.UpdateItem(ctx, item); err != nil {
		return nil, domain.Internal(err, op, "failed to update cart item")
	}
	return item, nil
}

func (s *cartService) RemoveItem(ctx context.Context, userID, itemID string) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	if _, err := s.ownedItem(ctx, userID, itemID); err != nil {
		return err
	}
	if err := s.carts.DeleteItem(ctx, itemID); err != nil {
		return notFound(err, ErrCartItemNotFound)
	}
	return nil
}

func (s *cartService) Clear(ctx context.Context, userID string) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	if err := s.carts.Clear(ctx, userID); err != nil {
		return domain.Internal(err, "cart.clear", "failed to clear cart")
	}
	return nil
}

// ownedItem loads an item and checks that it belongs to userID. A foreign
// item is reported as forbidden without saying whose it is.
func (s *cartService) ownedItem(ctx context.Context, userID, itemID string) (*domain.CartItem, error) {
	item, err := s.carts.GetItem(ctx, itemID)
	if err != nil {
		return nil, notFound(err, ErrCartItemNotFound)
	}
	if item.UserID != userID {
		return nil, ErrForbidden
	}
	return item, nil
}
