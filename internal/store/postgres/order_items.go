package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clove/commerce-core/internal/model"
	"github.com/clove/commerce-core/internal/store"
)

type orderItemStore struct{ pool *pgxpool.Pool }

func (s *orderItemStore) GetByID(ctx context.Context, id uuid.UUID) (*model.OrderItem, error) {
	it := &model.OrderItem{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, order_id, product_id, quantity, unit_price, created_at
		 FROM order_items WHERE id = $1`, id,
	).Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get order item: %w", err)
	}
	return it, nil
}

func (s *orderItemStore) Put(ctx context.Context, it *model.OrderItem) error {
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO order_items (id, order_id, product_id, quantity, unit_price, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 ON CONFLICT (id) DO UPDATE SET quantity = $4
		 RETURNING created_at`,
		it.ID, it.OrderID, it.ProductID, it.Quantity, it.UnitPrice,
	).Scan(&it.CreatedAt)
	if err != nil {
		return fmt.Errorf("put order item: %w", err)
	}
	return nil
}

func (s *orderItemStore) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := s.pool.Exec(ctx, `DELETE FROM order_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *orderItemStore) ListByOrderIDs(ctx context.Context, orderIDs []uuid.UUID) ([]model.OrderItem, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, order_id, product_id, quantity, unit_price, created_at
		 FROM order_items WHERE order_id = ANY($1) ORDER BY created_at`, orderIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *orderItemStore) DeleteByOrderID(ctx context.Context, orderID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID)
	if err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}
	return nil
}

func (s *orderItemStore) CountByProductID(ctx context.Context, productID uuid.UUID) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM order_items WHERE product_id = $1`, productID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count order items: %w", err)
	}
	return n, nil
}
