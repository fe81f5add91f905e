package postgres

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukerupert/atelier/internal/domain"
)

// CartRepository implements domain.CartRepository.
type CartRepository struct{ db DBTX }

var _ domain.CartRepository = (*CartRepository)(nil)

func (r *CartRepository) ListItems(ctx context.Context, userID string) ([]domain.CartItem, error) {
	return listDocs[domain.CartItem](ctx, r.db, "cart.list",
		`SELECT doc FROM cart_items WHERE user_id = $1 ORDER BY created_at, id`, userID)
}

func (r *CartRepository) GetItem(ctx context.Context, id string) (*domain.CartItem, error) {
	var item domain.CartItem
	if err := getDoc(ctx, r.db, &item, "cart.get_item", "cart item", id,
		`SELECT doc FROM cart_items WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *CartRepository) AddItem(ctx context.Context, item *domain.CartItem) error {
	const op = "cart.add_item"
	doc, err := encode(op, item)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO cart_items (id, user_id, doc, created_at) VALUES ($1, $2, $3, $4)`,
		item.ID, item.UserID, doc, item.CreatedAt)
	if err != nil {
		return domain.Internal(err, op, "failed to insert cart item")
	}
	return nil
}

func (r *CartRepository) UpdateItem(ctx context.Context, item *domain.CartItem) error {
	const op = "cart.update_item"
	doc, err := encode(op, item)
	if err != nil {
		return err
	}
	return execOne(ctx, r.db, op, "cart item", item.ID,
		`UPDATE cart_items SET doc = $2 WHERE id = $1`, item.ID, doc)
}

func (r *CartRepository) DeleteItem(ctx context.Context, id string) error {
	return execOne(ctx, r.db, "cart.delete_item", "cart item", id,
		`DELETE FROM cart_items WHERE id = $1`, id)
}

func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return domain.Internal(err, "cart.clear", "failed to clear cart")
	}
	return nil
}

// AddressRepository implements domain.AddressRepository.
type AddressRepository struct{ db DBTX }

var _ domain.AddressRepository = (*AddressRepository)(nil)

func (r *AddressRepository) Create(ctx context.Context, a *domain.Address) error {
	const op = "address.create"
	doc, err := encode(op, a)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO addresses (id, user_id, doc) VALUES ($1, $2, $3)`,
		a.ID, a.UserID, doc)
	if err != nil {
		return domain.Internal(err, op, "failed to insert address")
	}
	return nil
}

func (r *AddressRepository) Get(ctx context.Context, id string) (*domain.Address, error) {
	var a domain.Address
	if err := getDoc(ctx, r.db, &a, "address.get", "address", id,
		`SELECT doc FROM addresses WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AddressRepository) ListByUser(ctx context.Context, userID string) ([]domain.Address, error) {
	return listDocs[domain.Address](ctx, r.db, "address.list",
		`SELECT doc FROM addresses WHERE user_id = $1 ORDER BY created_at, id`, userID)
}

// OrderRepository implements domain.OrderRepository. Stock adjustments and
// the order write share one transaction; the affected product rows are
// locked in id order.
type OrderRepository struct{ pool *pgxpool.Pool }

var _ domain.OrderRepository = (*OrderRepository)(nil)

func (r *OrderRepository) Create(ctx context.Context, o *domain.Order, adjustments []domain.StockAdjustment) error {
	const op = "order.create"
	doc, err := encode(op, o)
	if err != nil {
		return err
	}

	return r.inTx(ctx, op, func(tx pgx.Tx) error {
		if err := applyAdjustments(ctx, tx, op, adjustments); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO orders (id, user_id, status, doc, created_at) VALUES ($1, $2, $3, $4, $5)`,
			o.ID, o.UserID, string(o.Status), doc, o.CreatedAt)
		if err != nil {
			return domain.Internal(err, op, "failed to insert order")
		}
		return nil
	})
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	return getOrder(ctx, r.pool, `SELECT doc FROM orders WHERE id = $1`, id)
}

func getOrder(ctx context.Context, db DBTX, query, id string) (*domain.Order, error) {
	var o domain.Order
	if err := getDoc(ctx, db, &o, "order.get", "order", id, query, id); err != nil {
		if domain.IsCode(err, domain.ENOTFOUND) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return listDocs[domain.Order](ctx, r.pool, "order.list",
		`SELECT doc FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id`, userID)
}

func (r *OrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	return listDocs[domain.Order](ctx, r.pool, "order.list_all",
		`SELECT doc FROM orders ORDER BY created_at DESC, id`)
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, adjustments []domain.StockAdjustment) (*domain.Order, error) {
	const op = "order.update_status"

	var updated *domain.Order
	err := r.inTx(ctx, op, func(tx pgx.Tx) error {
		o, err := getOrder(ctx, tx, `SELECT doc FROM orders WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return err
		}
		if o.Status != from {
			return domain.ErrInvalidStatusChange
		}
		if err := applyAdjustments(ctx, tx, op, adjustments); err != nil {
			return err
		}

		o.Status = to
		o.UpdatedAt = time.Now().UTC()
		doc, err := encode(op, o)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE orders SET status = $2, doc = $3 WHERE id = $1`, id, string(to), doc); err != nil {
			return domain.Internal(err, op, "failed to update order")
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *OrderRepository) inTx(ctx context.Context, op string, fn func(tx pgx.Tx) error) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Internal(err, op, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return domain.Internal(err, op, "failed to commit transaction")
	}
	return nil
}

// applyAdjustments locks each affected product, applies its adjustments and
// writes it back. Restocks of products or variants that no longer exist are
// skipped; any decrement that cannot be satisfied fails the whole call.
func applyAdjustments(ctx context.Context, tx pgx.Tx, op string, adjustments []domain.StockAdjustment) error {
	byProduct := make(map[string][]domain.StockAdjustment)
	ids := make([]string, 0, len(adjustments))
	for _, adj := range adjustments {
		if _, ok := byProduct[adj.ProductID]; !ok {
			ids = append(ids, adj.ProductID)
		}
		byProduct[adj.ProductID] = append(byProduct[adj.ProductID], adj)
	}
	sort.Strings(ids)

	for _, id := range ids {
		p, err := getProduct(ctx, tx, op, `SELECT doc FROM products WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			if domain.IsCode(err, domain.ENOTFOUND) && restockOnly(byProduct[id]) {
				continue
			}
			return err
		}

		changed := false
		for _, adj := range byProduct[id] {
			if err := p.AdjustStock(adj.ColorID, adj.Size, adj.Delta); err != nil {
				if adj.Delta > 0 && domain.IsCode(err, domain.ENOTFOUND) {
					continue
				}
				var se *domain.InsufficientStockError
				if errors.As(err, &se) {
					se.Op = op
				}
				return err
			}
			changed = true
		}
		if !changed {
			continue
		}
		if err := saveProduct(ctx, tx, op, p); err != nil {
			return err
		}
	}
	return nil
}

func restockOnly(adjustments []domain.StockAdjustment) bool {
	for _, adj := range adjustments {
		if adj.Delta <= 0 {
			return false
		}
	}
	return true
}
