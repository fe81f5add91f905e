// Package postgres implements the repository contracts on PostgreSQL. Each
// entity is stored as a JSONB document next to the scalar columns used for
// lookups and compare-and-swap.
package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukerupert/atelier/internal/domain"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewStore returns every repository backed by pool.
func NewStore(pool *pgxpool.Pool) domain.Store {
	return domain.Store{
		Categories: &CategoryRepository{db: pool},
		Colors:     &ColorRepository{db: pool},
		Products:   &ProductRepository{db: pool},
		Sales:      &SaleRepository{db: pool},
		Carts:      &CartRepository{db: pool},
		Addresses:  &AddressRepository{db: pool},
		Orders:     &OrderRepository{pool: pool},
	}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// getDoc scans a single JSONB document into dst. A missing row is reported
// as ENOTFOUND for resource/id.
func getDoc(ctx context.Context, db DBTX, dst any, op, resource, id, query string, args ...any) error {
	var raw []byte
	if err := db.QueryRow(ctx, query, args...).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NotFound(op, resource, id)
		}
		return domain.Internal(err, op, "failed to load "+resource)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return domain.Internal(err, op, "failed to decode "+resource)
	}
	return nil
}

// listDocs runs a query returning one JSONB column and decodes every row.
func listDocs[T any](ctx context.Context, db DBTX, op, query string, args ...any) ([]T, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.Internal(err, op, "query failed")
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, domain.Internal(err, op, "failed to scan row")
		}
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, domain.Internal(err, op, "failed to decode row")
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, op, "failed to iterate rows")
	}
	return out, nil
}

// execOne runs a write that must affect exactly one row.
func execOne(ctx context.Context, db DBTX, op, resource, id, query string, args ...any) error {
	tag, err := db.Exec(ctx, query, args...)
	if err != nil {
		return domain.Internal(err, op, "failed to write "+resource)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound(op, resource, id)
	}
	return nil
}

func encode(op string, v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to encode document")
	}
	return raw, nil
}
