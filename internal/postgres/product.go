package postgres

import (
	"context"
	"encoding/json"

	"github.com/dukerupert/atelier/internal/domain"
)

// ProductRepository implements domain.ProductRepository.
type ProductRepository struct{ db DBTX }

var _ domain.ProductRepository = (*ProductRepository)(nil)

func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	const op = "product.create"
	p.Version = 1
	doc, err := encode(op, p)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO products (id, category_id, status, version, doc, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.CategoryID, string(p.Status), p.Version, doc, p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflict(op, "product already exists")
		}
		return domain.Internal(err, op, "failed to insert product")
	}
	return nil
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	return getProduct(ctx, r.db, "product.get", `SELECT doc FROM products WHERE id = $1`, id)
}

func getProduct(ctx context.Context, db DBTX, op, query, id string) (*domain.Product, error) {
	var p domain.Product
	if err := getDoc(ctx, db, &p, op, "product", id, query, id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	return listDocs[domain.Product](ctx, r.db, "product.list",
		`SELECT doc FROM products
		 WHERE ($1 = '' OR status = $1) AND ($2 = '' OR category_id = $2)
		 ORDER BY created_at DESC, id`,
		string(filter.Status), filter.CategoryID)
}

func (r *ProductRepository) ListByCategory(ctx context.Context, categoryID string) ([]domain.Product, error) {
	return listDocs[domain.Product](ctx, r.db, "product.list_by_category",
		`SELECT doc FROM products WHERE category_id = $1 ORDER BY created_at DESC, id`, categoryID)
}

// ListByColor uses JSONB containment so the GIN index on variants serves it.
func (r *ProductRepository) ListByColor(ctx context.Context, colorID string) ([]domain.Product, error) {
	probe, err := json.Marshal([]map[string]string{{"colorId": colorID}})
	if err != nil {
		return nil, domain.Internal(err, "product.list_by_color", "failed to encode probe")
	}
	return listDocs[domain.Product](ctx, r.db, "product.list_by_color",
		`SELECT doc FROM products WHERE doc->'variants' @> $1::jsonb ORDER BY created_at DESC, id`, probe)
}

func (r *ProductRepository) Save(ctx context.Context, p *domain.Product) error {
	return saveProduct(ctx, r.db, "product.save", p)
}

// saveProduct writes p if the stored version still equals p.Version and
// bumps p.Version on success.
func saveProduct(ctx context.Context, db DBTX, op string, p *domain.Product) error {
	expected := p.Version
	p.Version++
	doc, err := encode(op, p)
	if err != nil {
		p.Version = expected
		return err
	}

	tag, err := db.Exec(ctx,
		`UPDATE products SET category_id = $3, status = $4, version = $5, doc = $6
		 WHERE id = $1 AND version = $2`,
		p.ID, expected, p.CategoryID, string(p.Status), p.Version, doc)
	if err != nil {
		p.Version = expected
		return domain.Internal(err, op, "failed to save product")
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	p.Version = expected

	var exists bool
	if err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, p.ID).Scan(&exists); err != nil {
		return domain.Internal(err, op, "failed to check product")
	}
	if !exists {
		return domain.NotFound(op, "product", p.ID)
	}
	return domain.ErrVersionConflict
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	return execOne(ctx, r.db, "product.delete", "product", id,
		`DELETE FROM products WHERE id = $1`, id)
}
