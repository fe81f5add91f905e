package postgres

import (
	"context"

	"github.com/dukerupert/atelier/internal/domain"
)

// SaleRepository implements domain.SaleRepository.
type SaleRepository struct{ db DBTX }

var _ domain.SaleRepository = (*SaleRepository)(nil)

func (r *SaleRepository) Create(ctx context.Context, s *domain.Sale) error {
	const op = "sale.create"
	s.Version = 1
	doc, err := encode(op, s)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO sales (id, status, version, doc, created_at) VALUES ($1, $2, $3, $4, $5)`,
		s.ID, string(s.Status), s.Version, doc, s.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflict(op, "sale already exists")
		}
		return domain.Internal(err, op, "failed to insert sale")
	}
	return nil
}

func (r *SaleRepository) Get(ctx context.Context, id string) (*domain.Sale, error) {
	var s domain.Sale
	if err := getDoc(ctx, r.db, &s, "sale.get", "sale", id,
		`SELECT doc FROM sales WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SaleRepository) List(ctx context.Context) ([]domain.Sale, error) {
	return listDocs[domain.Sale](ctx, r.db, "sale.list",
		`SELECT doc FROM sales ORDER BY doc->>'startDate', id`)
}

func (r *SaleRepository) ListByStatus(ctx context.Context, status domain.SaleStatus) ([]domain.Sale, error) {
	return listDocs[domain.Sale](ctx, r.db, "sale.list_by_status",
		`SELECT doc FROM sales WHERE status = $1 ORDER BY doc->>'startDate', id`, string(status))
}

func (r *SaleRepository) Save(ctx context.Context, s *domain.Sale) error {
	const op = "sale.save"
	expected := s.Version
	s.Version++
	doc, err := encode(op, s)
	if err != nil {
		s.Version = expected
		return err
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE sales SET status = $3, version = $4, doc = $5 WHERE id = $1 AND version = $2`,
		s.ID, expected, string(s.Status), s.Version, doc)
	if err != nil {
		s.Version = expected
		return domain.Internal(err, op, "failed to save sale")
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	s.Version = expected

	if _, err := r.Get(ctx, s.ID); err != nil {
		return err
	}
	return domain.ErrVersionConflict
}

func (r *SaleRepository) Delete(ctx context.Context, id string) error {
	return execOne(ctx, r.db, "sale.delete", "sale", id,
		`DELETE FROM sales WHERE id = $1`, id)
}
