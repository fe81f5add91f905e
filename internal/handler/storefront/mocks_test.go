package storefront

import (
	"context"
	"net/http"

	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/notify"
	"github.com/dukerupert/atelier/internal/service"
)

// mockCatalogService implements service.CatalogService for testing
type mockCatalogService struct {
	service.CatalogService

	listProductsFunc   func(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	getProductFunc     func(ctx context.Context, id string) (*domain.Product, error)
	listCategoriesFunc func(ctx context.Context, activeOnly bool) ([]domain.Category, error)
	listColorsFunc     func(ctx context.Context) ([]domain.Color, error)
}

func (m *mockCatalogService) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	if m.listProductsFunc != nil {
		return m.listProductsFunc(ctx, filter)
	}
	return nil, nil
}

func (m *mockCatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if m.getProductFunc != nil {
		return m.getProductFunc(ctx, id)
	}
	return nil, service.ErrProductNotFound
}

func (m *mockCatalogService) ListCategories(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	if m.listCategoriesFunc != nil {
		return m.listCategoriesFunc(ctx, activeOnly)
	}
	return nil, nil
}

func (m *mockCatalogService) ListColors(ctx context.Context) ([]domain.Color, error) {
	if m.listColorsFunc != nil {
		return m.listColorsFunc(ctx)
	}
	return nil, nil
}

// mockCartService implements service.CartService for testing
type mockCartService struct {
	getCartFunc     func(ctx context.Context, userID string) (*domain.CartSummary, error)
	addItemFunc     func(ctx context.Context, userID string, params service.AddCartItemParams) (*domain.CartItem, error)
	setQuantityFunc func(ctx context.Context, userID, itemID string, quantity int) (*domain.CartItem, error)
	removeItemFunc  func(ctx context.Context, userID, itemID string) error
	clearFunc       func(ctx context.Context, userID string) error
}

func (m *mockCartService) GetCart(ctx context.Context, userID string) (*domain.CartSummary, error) {
	if m.getCartFunc != nil {
		return m.getCartFunc(ctx, userID)
	}
	return &domain.CartSummary{Items: []domain.CartLine{}}, nil
}

func (m *mockCartService) AddItem(ctx context.Context, userID string, params service.AddCartItemParams) (*domain.CartItem, error) {
	if m.addItemFunc != nil {
		return m.addItemFunc(ctx, userID, params)
	}
	return nil, nil
}

func (m *mockCartService) SetQuantity(ctx context.Context, userID, itemID string, quantity int) (*domain.CartItem, error) {
	if m.setQuantityFunc != nil {
		return m.setQuantityFunc(ctx, userID, itemID, quantity)
	}
	return nil, nil
}

func (m *mockCartService) RemoveItem(ctx context.Context, userID, itemID string) error {
	if m.removeItemFunc != nil {
		return m.removeItemFunc(ctx, userID, itemID)
	}
	return nil
}

func (m *mockCartService) Clear(ctx context.Context, userID string) error {
	if m.clearFunc != nil {
		return m.clearFunc(ctx, userID)
	}
	return nil
}

// mockOrderService implements service.OrderService for testing
type mockOrderService struct {
	service.OrderService

	createOrderFunc func(ctx context.Context, userID string, params service.CreateOrderParams) (*domain.Order, error)
	getOrderFunc    func(ctx context.Context, caller *domain.Identity, orderID string) (*domain.Order, error)
	listOrdersFunc  func(ctx context.Context, userID string) ([]domain.Order, error)
}

func (m *mockOrderService) CreateOrder(ctx context.Context, userID string, params service.CreateOrderParams) (*domain.Order, error) {
	if m.createOrderFunc != nil {
		return m.createOrderFunc(ctx, userID, params)
	}
	return nil, nil
}

func (m *mockOrderService) GetOrder(ctx context.Context, caller *domain.Identity, orderID string) (*domain.Order, error) {
	if m.getOrderFunc != nil {
		return m.getOrderFunc(ctx, caller, orderID)
	}
	return nil, service.ErrOrderNotFound
}

func (m *mockOrderService) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	if m.listOrdersFunc != nil {
		return m.listOrdersFunc(ctx, userID)
	}
	return []domain.Order{}, nil
}

// mockAddressService implements service.AddressService for testing
type mockAddressService struct {
	listFunc   func(ctx context.Context, userID string) ([]domain.Address, error)
	createFunc func(ctx context.Context, userID string, params service.CreateAddressParams) (*domain.Address, error)
}

func (m *mockAddressService) ListAddresses(ctx context.Context, userID string) ([]domain.Address, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, userID)
	}
	return []domain.Address{}, nil
}

func (m *mockAddressService) CreateAddress(ctx context.Context, userID string, params service.CreateAddressParams) (*domain.Address, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, userID, params)
	}
	return nil, nil
}

// recordingNotifier captures published events.
type recordingNotifier struct {
	events []notify.OrderPlacedEvent
	err    error
}

func (n *recordingNotifier) OrderPlaced(_ context.Context, event notify.OrderPlacedEvent) error {
	n.events = append(n.events, event)
	return n.err
}

// withIdentity attaches an authenticated caller to req.
func withIdentity(req *http.Request, userID, email string) *http.Request {
	ctx := domain.NewContextWithIdentity(req.Context(), &domain.Identity{
		UserID: userID,
		Role:   domain.RoleCustomer,
		Email:  email,
	})
	return req.WithContext(ctx)
}
