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

var userSortFields = map[string]bool{"created_at": true, "username": true}

type userStore struct{ pool *pgxpool.Pool }

func (s *userStore) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u := &model.User{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, email, first_name, last_name, COALESCE(profile_data, ''), created_at, updated_at
		 FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.ProfileData, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *userStore) Put(ctx context.Context, u *model.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, username, email, first_name, last_name, profile_data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NOW(), NOW())
		 ON CONFLICT (id) DO UPDATE SET
		   username = $2, email = $3, first_name = $4, last_name = $5,
		   profile_data = NULLIF($6, ''), updated_at = NOW()
		 RETURNING created_at, updated_at`,
		u.ID, u.Username, u.Email, u.FirstName, u.LastName, u.ProfileData,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

func (s *userStore) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func userConds(f store.UserFilter) ([]string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Username != "" {
		add("username = $%d", f.Username)
	}
	if f.Email != "" {
		add("email = $%d", f.Email)
	}
	if f.FirstName != "" {
		add("first_name = $%d", f.FirstName)
	}
	if f.LastNameLike != "" {
		add("last_name ILIKE '%%' || $%d || '%%'", f.LastNameLike)
	}
	if f.EmailDomain != "" {
		add("email LIKE '%%@' || $%d", f.EmailDomain)
	}
	if f.CreatedAfter != nil {
		add("created_at > $%d", *f.CreatedAfter)
	}
	if f.HasProfile {
		conds = append(conds, "profile_data IS NOT NULL")
	}
	return conds, args
}

func (s *userStore) List(ctx context.Context, f store.UserFilter, st store.Sort, limit, offset int) ([]model.User, int, error) {
	conds, args := userConds(f)
	where := whereClause(conds)

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM users"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	profileCol := "''"
	if f.IncludeProfile {
		profileCol = "COALESCE(profile_data, '')"
	}
	query := fmt.Sprintf(
		`SELECT id, username, email, first_name, last_name, %s, created_at, updated_at FROM users`,
		profileCol,
	) + where + orderBy(st, userSortFields)
	var lim string
	lim, args = limitClause(args, limit, offset)
	query += lim

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users, err := scanUsers(rows)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (s *userStore) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, username, email, first_name, last_name, '', created_at, updated_at
		 FROM users WHERE id = ANY($1)`, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("list users by ids: %w", err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

func scanUsers(rows pgx.Rows) ([]model.User, error) {
	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
			&u.ProfileData, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *userStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
