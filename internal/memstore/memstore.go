// Package memstore is an in-memory implementation of the repository
// contracts. It backs development runs without DATABASE_URL and the service
// tests. All repositories share one lock so cross-document writes such as
// order placement are atomic.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dukerupert/atelier/internal/domain"
)

// DB holds every document table.
type DB struct {
	mu sync.RWMutex

	categories map[string]domain.Category
	colors     map[string]domain.Color
	products   map[string]domain.Product
	sales      map[string]domain.Sale
	cartItems  map[string]domain.CartItem
	addresses  map[string]domain.Address
	orders     map[string]domain.Order
}

// New creates an empty database.
func New() *DB {
	return &DB{
		categories: make(map[string]domain.Category),
		colors:     make(map[string]domain.Color),
		products:   make(map[string]domain.Product),
		sales:      make(map[string]domain.Sale),
		cartItems:  make(map[string]domain.CartItem),
		addresses:  make(map[string]domain.Address),
		orders:     make(map[string]domain.Order),
	}
}

// Store returns the repositories backed by db.
func (db *DB) Store() domain.Store {
	return domain.Store{
		Categories: &CategoryRepository{db: db},
		Colors:     &ColorRepository{db: db},
		Products:   &ProductRepository{db: db},
		Sales:      &SaleRepository{db: db},
		Carts:      &CartRepository{db: db},
		Addresses:  &AddressRepository{db: db},
		Orders:     &OrderRepository{db: db},
	}
}

// NewStore is shorthand for New().Store().
func NewStore() domain.Store {
	return New().Store()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// =============================================================================
// Categories
// =============================================================================

// CategoryRepository implements domain.CategoryRepository.
type CategoryRepository struct{ db *DB }

var _ domain.CategoryRepository = (*CategoryRepository)(nil)

func (r *CategoryRepository) Create(_ context.Context, c *domain.Category) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.categories[c.ID]; ok {
		return domain.Conflict("category.create", "category already exists")
	}
	for _, existing := range r.db.categories {
		if existing.Slug == c.Slug {
			return domain.Conflict("category.create", "category slug already exists")
		}
	}
	r.db.categories[c.ID] = *c
	return nil
}

func (r *CategoryRepository) Get(_ context.Context, id string) (*domain.Category, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	c, ok := r.db.categories[id]
	if !ok {
		return nil, domain.NotFound("category.get", "category", id)
	}
	return &c, nil
}

func (r *CategoryRepository) List(_ context.Context) ([]domain.Category, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := make([]domain.Category, 0, len(r.db.categories))
	for _, id := range sortedKeys(r.db.categories) {
		out = append(out, r.db.categories[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *CategoryRepository) Update(_ context.Context, c *domain.Category) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.categories[c.ID]; !ok {
		return domain.NotFound("category.update", "category", c.ID)
	}
	r.db.categories[c.ID] = *c
	return nil
}

func (r *CategoryRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.categories[id]; !ok {
		return domain.NotFound("category.delete", "category", id)
	}
	delete(r.db.categories, id)
	return nil
}

// =============================================================================
// Colors
// =============================================================================

// ColorRepository implements domain.ColorRepository.
type ColorRepository struct{ db *DB }

var _ domain.ColorRepository = (*ColorRepository)(nil)

func (r *ColorRepository) Create(_ context.Context, c *domain.Color) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.colors[c.ID]; ok {
		return domain.Conflict("color.create", "color already exists")
	}
	r.db.colors[c.ID] = *c
	return nil
}

func (r *ColorRepository) Get(_ context.Context, id string) (*domain.Color, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	c, ok := r.db.colors[id]
	if !ok {
		return nil, domain.NotFound("color.get", "color", id)
	}
	return &c, nil
}

func (r *ColorRepository) List(_ context.Context) ([]domain.Color, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := make([]domain.Color, 0, len(r.db.colors))
	for _, id := range sortedKeys(r.db.colors) {
		out = append(out, r.db.colors[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *ColorRepository) Update(_ context.Context, c *domain.Color) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.colors[c.ID]; !ok {
		return domain.NotFound("color.update", "color", c.ID)
	}
	r.db.colors[c.ID] = *c
	return nil
}

func (r *ColorRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.colors[id]; !ok {
		return domain.NotFound("color.delete", "color", id)
	}
	delete(r.db.colors, id)
	return nil
}

// =============================================================================
// Products
// =============================================================================

// ProductRepository implements domain.ProductRepository.
type ProductRepository struct{ db *DB }

var _ domain.ProductRepository = (*ProductRepository)(nil)

func (r *ProductRepository) Create(_ context.Context, p *domain.Product) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.products[p.ID]; ok {
		return domain.Conflict("product.create", "product already exists")
	}
	p.Version = 1
	r.db.products[p.ID] = p.Clone()
	return nil
}

func (r *ProductRepository) Get(_ context.Context, id string) (*domain.Product, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	p, ok := r.db.products[id]
	if !ok {
		return nil, domain.NotFound("product.get", "product", id)
	}
	c := p.Clone()
	return &c, nil
}

func (r *ProductRepository) list(match func(p *domain.Product) bool) []domain.Product {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := []domain.Product{}
	for _, id := range sortedKeys(r.db.products) {
		p := r.db.products[id]
		if match(&p) {
			out = append(out, p.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *ProductRepository) List(_ context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	return r.list(func(p *domain.Product) bool {
		if filter.Status != "" && p.Status != filter.Status {
			return false
		}
		if filter.CategoryID != "" && p.CategoryID != filter.CategoryID {
			return false
		}
		return true
	}), nil
}

func (r *ProductRepository) ListByCategory(_ context.Context, categoryID string) ([]domain.Product, error) {
	return r.list(func(p *domain.Product) bool { return p.CategoryID == categoryID }), nil
}

func (r *ProductRepository) ListByColor(_ context.Context, colorID string) ([]domain.Product, error) {
	return r.list(func(p *domain.Product) bool { return p.HasColor(colorID) }), nil
}

func (r *ProductRepository) Save(_ context.Context, p *domain.Product) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored, ok := r.db.products[p.ID]
	if !ok {
		return domain.NotFound("product.save", "product", p.ID)
	}
	if stored.Version != p.Version {
		return domain.ErrVersionConflict
	}
	p.Version++
	r.db.products[p.ID] = p.Clone()
	return nil
}

func (r *ProductRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.products[id]; !ok {
		return domain.NotFound("product.delete", "product", id)
	}
	delete(r.db.products, id)
	return nil
}

// =============================================================================
// Sales
// =============================================================================

// SaleRepository implements domain.SaleRepository.
type SaleRepository struct{ db *DB }

var _ domain.SaleRepository = (*SaleRepository)(nil)

func (r *SaleRepository) Create(_ context.Context, s *domain.Sale) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.sales[s.ID]; ok {
		return domain.Conflict("sale.create", "sale already exists")
	}
	s.Version = 1
	r.db.sales[s.ID] = s.Clone()
	return nil
}

func (r *SaleRepository) Get(_ context.Context, id string) (*domain.Sale, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	s, ok := r.db.sales[id]
	if !ok {
		return nil, domain.NotFound("sale.get", "sale", id)
	}
	c := s.Clone()
	return &c, nil
}

func (r *SaleRepository) List(_ context.Context) ([]domain.Sale, error) {
	return r.list(""), nil
}

func (r *SaleRepository) ListByStatus(_ context.Context, status domain.SaleStatus) ([]domain.Sale, error) {
	return r.list(status), nil
}

func (r *SaleRepository) list(status domain.SaleStatus) []domain.Sale {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := []domain.Sale{}
	for _, id := range sortedKeys(r.db.sales) {
		s := r.db.sales[id]
		if status == "" || s.Status == status {
			out = append(out, s.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out
}

func (r *SaleRepository) Save(_ context.Context, s *domain.Sale) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored, ok := r.db.sales[s.ID]
	if !ok {
		return domain.NotFound("sale.save", "sale", s.ID)
	}
	if stored.Version != s.Version {
		return domain.ErrVersionConflict
	}
	s.Version++
	r.db.sales[s.ID] = s.Clone()
	return nil
}

func (r *SaleRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.sales[id]; !ok {
		return domain.NotFound("sale.delete", "sale", id)
	}
	delete(r.db.sales, id)
	return nil
}

// =============================================================================
// Cart
// =============================================================================

// CartRepository implements domain.CartRepository.
type CartRepository struct{ db *DB }

var _ domain.CartRepository = (*CartRepository)(nil)

func (r *CartRepository) ListItems(_ context.Context, userID string) ([]domain.CartItem, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := []domain.CartItem{}
	for _, id := range sortedKeys(r.db.cartItems) {
		if it := r.db.cartItems[id]; it.UserID == userID {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *CartRepository) GetItem(_ context.Context, id string) (*domain.CartItem, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	it, ok := r.db.cartItems[id]
	if !ok {
		return nil, domain.ErrCartItemNotFound
	}
	return &it, nil
}

func (r *CartRepository) AddItem(_ context.Context, item *domain.CartItem) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.cartItems[item.ID]; ok {
		return domain.Conflict("cart.add", "cart item already exists")
	}
	r.db.cartItems[item.ID] = *item
	return nil
}

func (r *CartRepository) UpdateItem(_ context.Context, item *domain.CartItem) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.cartItems[item.ID]; !ok {
		return domain.ErrCartItemNotFound
	}
	r.db.cartItems[item.ID] = *item
	return nil
}

func (r *CartRepository) DeleteItem(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.cartItems[id]; !ok {
		return domain.ErrCartItemNotFound
	}
	delete(r.db.cartItems, id)
	return nil
}

func (r *CartRepository) Clear(_ context.Context, userID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, it := range r.db.cartItems {
		if it.UserID == userID {
			delete(r.db.cartItems, id)
		}
	}
	return nil
}

// =============================================================================
// Addresses
// =============================================================================

// AddressRepository implements domain.AddressRepository.
type AddressRepository struct{ db *DB }

var _ domain.AddressRepository = (*AddressRepository)(nil)

func (r *AddressRepository) Create(_ context.Context, a *domain.Address) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.addresses[a.ID] = *a
	return nil
}

func (r *AddressRepository) Get(_ context.Context, id string) (*domain.Address, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	a, ok := r.db.addresses[id]
	if !ok {
		return nil, domain.NotFound("address.get", "address", id)
	}
	return &a, nil
}

func (r *AddressRepository) ListByUser(_ context.Context, userID string) ([]domain.Address, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := []domain.Address{}
	for _, id := range sortedKeys(r.db.addresses) {
		if a := r.db.addresses[id]; a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

// =============================================================================
// Orders
// =============================================================================

// OrderRepository implements domain.OrderRepository.
type OrderRepository struct{ db *DB }

var _ domain.OrderRepository = (*OrderRepository)(nil)

func cloneOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	return o
}

// applyAdjustments stages every adjustment on copies and only commits them to
// the products table once all succeed. Restocks of products or variants that
// no longer exist are dropped. Caller holds the write lock.
func (db *DB) applyAdjustments(op string, adjustments []domain.StockAdjustment) error {
	staged := make(map[string]domain.Product)
	for _, adj := range adjustments {
		p, ok := staged[adj.ProductID]
		if !ok {
			stored, exists := db.products[adj.ProductID]
			if !exists {
				if adj.Delta > 0 {
					continue
				}
				return domain.NotFound(op, "product", adj.ProductID)
			}
			p = stored.Clone()
		}
		if err := p.AdjustStock(adj.ColorID, adj.Size, adj.Delta); err != nil {
			if adj.Delta > 0 && domain.IsCode(err, domain.ENOTFOUND) {
				staged[adj.ProductID] = p
				continue
			}
			if se, ok := err.(*domain.InsufficientStockError); ok {
				se.Op = op
			}
			return err
		}
		staged[adj.ProductID] = p
	}
	for id, p := range staged {
		p.Version++
		db.products[id] = p
	}
	return nil
}

func (r *OrderRepository) Create(_ context.Context, o *domain.Order, adjustments []domain.StockAdjustment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.orders[o.ID]; ok {
		return domain.Conflict("order.create", "order already exists")
	}
	if err := r.db.applyAdjustments("order.create", adjustments); err != nil {
		return err
	}
	r.db.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (r *OrderRepository) Get(_ context.Context, id string) (*domain.Order, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	o, ok := r.db.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	c := cloneOrder(o)
	return &c, nil
}

func (r *OrderRepository) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	return r.list(func(o *domain.Order) bool { return o.UserID == userID }), nil
}

func (r *OrderRepository) List(_ context.Context) ([]domain.Order, error) {
	return r.list(func(*domain.Order) bool { return true }), nil
}

func (r *OrderRepository) list(match func(o *domain.Order) bool) []domain.Order {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := []domain.Order{}
	for _, id := range sortedKeys(r.db.orders) {
		o := r.db.orders[id]
		if match(&o) {
			out = append(out, cloneOrder(o))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *OrderRepository) UpdateStatus(_ context.Context, id string, from, to domain.OrderStatus, adjustments []domain.StockAdjustment) (*domain.Order, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o, ok := r.db.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	if o.Status != from {
		return nil, domain.ErrInvalidStatusChange
	}
	if err := r.db.applyAdjustments("order.update_status", adjustments); err != nil {
		return nil, err
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	r.db.orders[id] = o
	c := cloneOrder(o)
	return &c, nil
}
