// Package postgres implements the store contract on PostgreSQL via pgx.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clove/commerce-core/internal/store"
)

type Store struct {
	pool     *pgxpool.Pool
	users    *userStore
	products *productStore
	orders   *orderStore
	items    *orderItemStore
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:     pool,
		users:    &userStore{pool: pool},
		products: &productStore{pool: pool},
		orders:   &orderStore{pool: pool},
		items:    &orderItemStore{pool: pool},
	}
}

func (s *Store) Users() store.UserStore           { return s.users }
func (s *Store) Products() store.ProductStore     { return s.products }
func (s *Store) Orders() store.OrderStore         { return s.orders }
func (s *Store) OrderItems() store.OrderItemStore { return s.items }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// whereClause joins conditions into a WHERE clause, or returns "" when there
// are none.
func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// orderBy validates the sort field against allowed and renders an ORDER BY
// clause. Unknown fields fall back to created_at; the zero Sort means
// created_at descending.
func orderBy(s store.Sort, allowed map[string]bool) string {
	field := s.Field
	if !allowed[field] {
		field = "created_at"
	}
	dir := "ASC"
	if s.Desc || s.Field == "" {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", field, dir)
}

// limitClause renders LIMIT/OFFSET, treating limit <= 0 as unbounded.
func limitClause(args []any, limit, offset int) (string, []any) {
	if limit > 0 {
		args = append(args, limit, offset)
		return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args
	}
	if offset > 0 {
		args = append(args, offset)
		return fmt.Sprintf(" OFFSET $%d", len(args)), args
	}
	return "", args
}

// nullTime maps the zero time to NULL so the store can default it.
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
