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

var orderSortFields = map[string]bool{"created_at": true, "order_date": true, "total_amount": true}

type orderStore struct{ pool *pgxpool.Pool }

func (s *orderStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	o := &model.Order{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, total_amount, status, order_date, COALESCE(order_notes, ''), created_at, updated_at
		 FROM orders WHERE id = $1`, id,
	).Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.Status, &o.OrderDate, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (s *orderStore) Put(ctx context.Context, o *model.Order) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO orders (id, user_id, total_amount, status, order_date, order_notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, COALESCE($5, NOW()), NULLIF($6, ''), NOW(), NOW())
		 ON CONFLICT (id) DO UPDATE SET
		   user_id = $2, total_amount = $3, status = $4,
		   order_date = COALESCE($5, orders.order_date),
		   order_notes = NULLIF($6, ''), updated_at = NOW()
		 RETURNING order_date, created_at, updated_at`,
		o.ID, o.UserID, o.TotalAmount, o.Status, nullTime(o.OrderDate), o.Notes,
	).Scan(&o.OrderDate, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("put order: %w", err)
	}
	return nil
}

func (s *orderStore) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := s.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func orderConds(f store.OrderFilter) ([]string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.UserID != nil {
		add("user_id = $%d", *f.UserID)
	}
	if f.Status != nil {
		add("status = $%d", *f.Status)
	}
	if len(f.Statuses) > 0 {
		add("status = ANY($%d)", f.Statuses)
	}
	if f.DateFrom != nil {
		add("order_date >= $%d", *f.DateFrom)
	}
	if f.DateTo != nil {
		add("order_date <= $%d", *f.DateTo)
	}
	if f.MinAmount != nil {
		add("total_amount >= $%d", *f.MinAmount)
	}
	if f.HasNotes {
		conds = append(conds, "order_notes IS NOT NULL")
	}
	return conds, args
}

func (s *orderStore) List(ctx context.Context, f store.OrderFilter, st store.Sort, limit, offset int) ([]model.Order, int, error) {
	conds, args := orderConds(f)
	where := whereClause(conds)

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM orders"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	notesCol := "''"
	if f.IncludeNotes {
		notesCol = "COALESCE(order_notes, '')"
	}
	query := fmt.Sprintf(
		`SELECT id, user_id, total_amount, status, order_date, %s, created_at, updated_at FROM orders`,
		notesCol,
	) + where + orderBy(st, orderSortFields)
	var lim string
	lim, args = limitClause(args, limit, offset)
	query += lim

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (s *orderStore) ListByUserIDs(ctx context.Context, userIDs []uuid.UUID) ([]model.Order, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, total_amount, status, order_date, '', created_at, updated_at
		 FROM orders WHERE user_id = ANY($1) ORDER BY order_date DESC`, userIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("list orders by user ids: %w", err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

func scanOrders(rows pgx.Rows) ([]model.Order, error) {
	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.Status, &o.OrderDate,
			&o.Notes, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *orderStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}
