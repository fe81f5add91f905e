package postgres

import (
	"context"

	"github.com/dukerupert/atelier/internal/domain"
)

// CategoryRepository implements domain.CategoryRepository.
type CategoryRepository struct{ db DBTX }

var _ domain.CategoryRepository = (*CategoryRepository)(nil)

func (r *CategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	const op = "category.create"
	doc, err := encode(op, c)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO categories (id, slug, active, doc, created_at) VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Slug, c.Active, doc, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflict(op, "category slug already exists")
		}
		return domain.Internal(err, op, "failed to insert category")
	}
	return nil
}

func (r *CategoryRepository) Get(ctx context.Context, id string) (*domain.Category, error) {
	var c domain.Category
	if err := getDoc(ctx, r.db, &c, "category.get", "category", id,
		`SELECT doc FROM categories WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	return listDocs[domain.Category](ctx, r.db, "category.list",
		`SELECT doc FROM categories ORDER BY doc->>'name', id`)
}

func (r *CategoryRepository) Update(ctx context.Context, c *domain.Category) error {
	const op = "category.update"
	doc, err := encode(op, c)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE categories SET slug = $2, active = $3, doc = $4 WHERE id = $1`,
		c.ID, c.Slug, c.Active, doc)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflict(op, "category slug already exists")
		}
		return domain.Internal(err, op, "failed to update category")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound(op, "category", c.ID)
	}
	return nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	return execOne(ctx, r.db, "category.delete", "category", id,
		`DELETE FROM categories WHERE id = $1`, id)
}

// ColorRepository implements domain.ColorRepository.
type ColorRepository struct{ db DBTX }

var _ domain.ColorRepository = (*ColorRepository)(nil)

func (r *ColorRepository) Create(ctx context.Context, c *domain.Color) error {
	const op = "color.create"
	doc, err := encode(op, c)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO colors (id, doc, created_at) VALUES ($1, $2, $3)`,
		c.ID, doc, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflict(op, "color already exists")
		}
		return domain.Internal(err, op, "failed to insert color")
	}
	return nil
}

func (r *ColorRepository) Get(ctx context.Context, id string) (*domain.Color, error) {
	var c domain.Color
	if err := getDoc(ctx, r.db, &c, "color.get", "color", id,
		`SELECT doc FROM colors WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ColorRepository) List(ctx context.Context) ([]domain.Color, error) {
	return listDocs[domain.Color](ctx, r.db, "color.list",
		`SELECT doc FROM colors ORDER BY doc->>'name', id`)
}

func (r *ColorRepository) Update(ctx context.Context, c *domain.Color) error {
	const op = "color.update"
	doc, err := encode(op, c)
	if err != nil {
		return err
	}
	return execOne(ctx, r.db, op, "color", c.ID,
		`UPDATE colors SET doc = $2 WHERE id = $1`, c.ID, doc)
}

func (r *ColorRepository) Delete(ctx context.Context, id string) error {
	return execOne(ctx, r.db, "color.delete", "color", id,
		`DELETE FROM colors WHERE id = $1`, id)
}
