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

var productSortFields = map[string]bool{"created_at": true, "name": true, "price": true}

type productStore struct{ pool *pgxpool.Pool }

func (s *productStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p := &model.Product{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, description, price, category, stock_quantity,
		        COALESCE(image_data, ''), COALESCE(search_keywords, ''), created_at, updated_at
		 FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.Stock,
		&p.ImageData, &p.SearchKeywords, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (s *productStore) Put(ctx context.Context, p *model.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO products (id, name, description, price, category, stock_quantity,
		                       image_data, search_keywords, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), NOW(), NOW())
		 ON CONFLICT (id) DO UPDATE SET
		   name = $2, description = $3, price = $4, category = $5, stock_quantity = $6,
		   image_data = NULLIF($7, ''), search_keywords = NULLIF($8, ''), updated_at = NOW()
		 RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Description, p.Price, p.Category, p.Stock, p.ImageData, p.SearchKeywords,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("put product: %w", err)
	}
	return nil
}

func (s *productStore) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func productConds(f store.ProductFilter) ([]string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.NameLike != "" {
		add("name ILIKE '%%' || $%d || '%%'", f.NameLike)
	}
	if f.DescLike != "" {
		add("description ILIKE '%%' || $%d || '%%'", f.DescLike)
	}
	if f.KeywordsLike != "" {
		add("search_keywords ILIKE '%%' || $%d || '%%'", f.KeywordsLike)
	}
	if f.MinPrice != nil {
		add("price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("price <= $%d", *f.MaxPrice)
	}
	if f.InStock {
		conds = append(conds, "stock_quantity > 0")
	}
	if f.HasImages {
		conds = append(conds, "image_data IS NOT NULL")
	}
	return conds, args
}

func (s *productStore) List(ctx context.Context, f store.ProductFilter, st store.Sort, limit, offset int) ([]model.Product, int, error) {
	conds, args := productConds(f)
	where := whereClause(conds)

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM products"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	imageCol := "''"
	if f.IncludeImages {
		imageCol = "COALESCE(image_data, '')"
	}
	query := fmt.Sprintf(
		`SELECT id, name, description, price, category, stock_quantity, %s,
		        COALESCE(search_keywords, ''), created_at, updated_at FROM products`,
		imageCol,
	) + where + orderBy(st, productSortFields)
	var lim string
	lim, args = limitClause(args, limit, offset)
	query += lim

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products, err := scanProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (s *productStore) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, description, price, category, stock_quantity, '',
		        COALESCE(search_keywords, ''), created_at, updated_at
		 FROM products WHERE id = ANY($1)`, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("list products by ids: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

func scanProducts(rows pgx.Rows) ([]model.Product, error) {
	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.Stock,
			&p.ImageData, &p.SearchKeywords, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *productStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}
