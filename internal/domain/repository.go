package domain

import "context"

// =============================================================================
// REPOSITORY CONTRACTS
// =============================================================================
//
// Every entity is a single addressable document. References between
// documents are plain IDs; reverse lookups are indexed queries rather than
// stored back-pointers. Lookups of a missing ID return an ENOTFOUND error.

// CategoryRepository persists categories.
type CategoryRepository interface {
	Create(ctx context.Context, c *Category) error
	Get(ctx context.Context, id string) (*Category, error)
	List(ctx context.Context) ([]Category, error)
	Update(ctx context.Context, c *Category) error
	Delete(ctx context.Context, id string) error
}

// ColorRepository persists colors.
type ColorRepository interface {
	Create(ctx context.Context, c *Color) error
	Get(ctx context.Context, id string) (*Color, error)
	List(ctx context.Context) ([]Color, error)
	Update(ctx context.Context, c *Color) error
	Delete(ctx context.Context, id string) error
}

// ProductFilter narrows product listings. Zero values match everything.
type ProductFilter struct {
	Status     ProductStatus
	CategoryID string
}

// ProductRepository persists products.
type ProductRepository interface {
	// Create stores a new product with Version 1.
	Create(ctx context.Context, p *Product) error

	Get(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, filter ProductFilter) ([]Product, error)

	// ListByCategory returns every product whose CategoryID is categoryID.
	ListByCategory(ctx context.Context, categoryID string) ([]Product, error)

	// ListByColor returns every product with at least one variant of colorID.
	ListByColor(ctx context.Context, colorID string) ([]Product, error)

	// Save replaces the stored product if its version still equals p.Version,
	// then increments p.Version. A stale version returns ErrVersionConflict.
	Save(ctx context.Context, p *Product) error

	Delete(ctx context.Context, id string) error
}

// SaleRepository persists sales.
type SaleRepository interface {
	// Create stores a new sale with Version 1.
	Create(ctx context.Context, s *Sale) error

	Get(ctx context.Context, id string) (*Sale, error)
	List(ctx context.Context) ([]Sale, error)
	ListByStatus(ctx context.Context, status SaleStatus) ([]Sale, error)

	// Save is a compare-and-swap on Version, like ProductRepository.Save.
	Save(ctx context.Context, s *Sale) error

	Delete(ctx context.Context, id string) error
}

// CartRepository persists cart items. A user's cart is the set of their items.
type CartRepository interface {
	ListItems(ctx context.Context, userID string) ([]CartItem, error)
	GetItem(ctx context.Context, id string) (*CartItem, error)
	AddItem(ctx context.Context, item *CartItem) error
	UpdateItem(ctx context.Context, item *CartItem) error
	DeleteItem(ctx context.Context, id string) error
	Clear(ctx context.Context, userID string) error
}

// AddressRepository persists shipping addresses.
type AddressRepository interface {
	Create(ctx context.Context, a *Address) error
	Get(ctx context.Context, id string) (*Address, error)
	ListByUser(ctx context.Context, userID string) ([]Address, error)
}

// OrderRepository persists orders together with their stock effects.
type OrderRepository interface {
	// Create applies every adjustment to product stock and inserts the order
	// in one atomic step. If any adjustment would drive stock negative it
	// returns an InsufficientStockError and writes nothing.
	Create(ctx context.Context, o *Order, adjustments []StockAdjustment) error

	Get(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	List(ctx context.Context) ([]Order, error)

	// UpdateStatus moves the order from one status to another and applies the
	// adjustments atomically. It returns ErrInvalidStatusChange if the stored
	// status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to OrderStatus, adjustments []StockAdjustment) (*Order, error)
}

// Store bundles every repository behind one value so backends can be swapped
// as a unit.
type Store struct {
	Categories CategoryRepository
	Colors     ColorRepository
	Products   ProductRepository
	Sales      SaleRepository
	Carts      CartRepository
	Addresses  AddressRepository
	Orders     OrderRepository
}
