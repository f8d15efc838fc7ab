package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/clove/commerce-core/internal/async"
	"github.com/clove/commerce-core/internal/cache"
	"github.com/clove/commerce-core/internal/dto"
	"github.com/clove/commerce-core/internal/model"
	"github.com/clove/commerce-core/internal/resolver"
	"github.com/clove/commerce-core/internal/store"
)

const recentUserWindow = 30 * 24 * time.Hour

type UserService struct {
	store store.Store
	res   *resolver.Resolver
	cache cache.Cache
	exec  *async.Executor
	log   *slog.Logger
}

func NewUserService(st store.Store, res *resolver.Resolver, c cache.Cache, exec *async.Executor, log *slog.Logger) *UserService {
	return &UserService{store: st, res: res, cache: c, exec: exec, log: log}
}

func (s *UserService) Create(ctx context.Context, req dto.CreateUserRequest) (*dto.UserResponse, error) {
	return s.create(ctx, req, "")
}

// CreateWithProfile is the only create path that materializes the profile
// blob; the standard path never does.
func (s *UserService) CreateWithProfile(ctx context.Context, req dto.CreateUserWithProfileRequest) (*dto.UserResponse, error) {
	return s.create(ctx, req.CreateUserRequest, req.ProfileData)
}

func (s *UserService) create(ctx context.Context, req dto.CreateUserRequest, profileData string) (*dto.UserResponse, error) {
	if err := s.checkUnique(ctx, req.Username, req.Email, uuid.Nil); err != nil {
		return nil, err
	}

	user := &model.User{
		Username:    req.Username,
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		ProfileData: profileData,
	}
	if err := s.store.Users().Put(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	invalidate(ctx, s.cache, store.KindUser)

	resp := toUserResponse(user)
	return &resp, nil
}

func (s *UserService) checkUnique(ctx context.Context, username, email string, selfID uuid.UUID) error {
	if username != "" {
		matches, _, err := s.store.Users().List(ctx, store.UserFilter{Username: username}, store.Sort{}, 1, 0)
		if err != nil {
			return fmt.Errorf("check username: %w", err)
		}
		if len(matches) > 0 && matches[0].ID != selfID {
			return validationErr("username", "already taken")
		}
	}
	if email != "" {
		matches, _, err := s.store.Users().List(ctx, store.UserFilter{Email: email}, store.Sort{}, 1, 0)
		if err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if len(matches) > 0 && matches[0].ID != selfID {
			return validationErr("email", "already taken")
		}
	}
	return nil
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID, inc resolver.Include) (*dto.UserResponse, error) {
	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if inc.UserOrders {
		users := []model.User{*user}
		if err := s.res.ResolveUsers(ctx, users, inc); err != nil {
			return nil, err
		}
		user = &users[0]
	}

	resp := toUserResponse(user)
	return &resp, nil
}

func (s *UserService) List(ctx context.Context, page dto.PageRequest) (*dto.UserListResponse, error) {
	key := cache.Key(store.KindUser, "list",
		strconv.Itoa(page.Page), strconv.Itoa(page.PageSize), page.Sort, page.Order)
	return cachedQuery(ctx, s.cache, key, func() (*dto.UserListResponse, error) {
		return s.list(ctx, store.UserFilter{}, page)
	})
}

func (s *UserService) list(ctx context.Context, f store.UserFilter, page dto.PageRequest) (*dto.UserListResponse, error) {
	users, total, err := s.store.Users().List(ctx, f, sortFrom(page), page.PageSize, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	resp := &dto.UserListResponse{Total: total, Page: page.Page, PageSize: page.PageSize}
	for i := range users {
		resp.Users = append(resp.Users, toUserResponse(&users[i]))
	}
	return resp, nil
}

func (s *UserService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateUserRequest) (*dto.UserResponse, error) {
	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	var username, email string
	if req.Username != nil && *req.Username != user.Username {
		username = *req.Username
	}
	if req.Email != nil && *req.Email != user.Email {
		email = *req.Email
	}
	if username != "" || email != "" {
		if err := s.checkUnique(ctx, username, email, id); err != nil {
			return nil, err
		}
	}

	if req.Username != nil {
		user.Username = *req.Username
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.ProfileData != nil {
		user.ProfileData = *req.ProfileData
	}

	if err := s.store.Users().Put(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	invalidate(ctx, s.cache, store.KindUser)

	resp := toUserResponse(user)
	return &resp, nil
}

// Delete refuses to orphan orders: a user with orders returns ErrConflict.
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	orders, err := s.store.Orders().ListByUserIDs(ctx, []uuid.UUID{id})
	if err != nil {
		return fmt.Errorf("check user orders: %w", err)
	}
	if len(orders) > 0 {
		return fmt.Errorf("user has %d orders: %w", len(orders), ErrConflict)
	}

	if err := s.store.Users().Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	invalidate(ctx, s.cache, store.KindUser)
	return nil
}

// Search queries each indexed field once (username, email, first name, last
// name) and merges the results by identifier in first-seen order.
func (s *UserService) Search(ctx context.Context, keyword string) ([]dto.UserResponse, error) {
	if keyword == "" {
		return nil, validationErr("keyword", "must not be empty")
	}

	filters := []store.UserFilter{
		{Username: keyword},
		{Email: keyword},
		{FirstName: keyword},
		{LastNameLike: keyword},
	}
	lists := make([][]model.User, 0, len(filters))
	for _, f := range filters {
		users, _, err := s.store.Users().List(ctx, f, store.Sort{}, 0, 0)
		if err != nil {
			return nil, fmt.Errorf("search users: %w", err)
		}
		lists = append(lists, users)
	}

	merged := dedupByID(lists, func(u model.User) uuid.UUID { return u.ID })
	out := make([]dto.UserResponse, 0, len(merged))
	for i := range merged {
		out = append(out, toUserResponse(&merged[i]))
	}
	return out, nil
}

func (s *UserService) ByUsername(ctx context.Context, username string) (*dto.UserResponse, error) {
	if username == "" {
		return nil, validationErr("username", "must not be empty")
	}
	return s.getOne(ctx, store.UserFilter{Username: username})
}

func (s *UserService) ByEmail(ctx context.Context, email string) (*dto.UserResponse, error) {
	if email == "" {
		return nil, validationErr("email", "must not be empty")
	}
	return s.getOne(ctx, store.UserFilter{Email: email})
}

func (s *UserService) getOne(ctx context.Context, f store.UserFilter) (*dto.UserResponse, error) {
	users, _, err := s.store.Users().List(ctx, f, store.Sort{}, 1, 0)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if len(users) == 0 {
		return nil, ErrUserNotFound
	}
	resp := toUserResponse(&users[0])
	return &resp, nil
}

// WithPendingOrders returns the distinct owners of pending orders using two
// batched queries, never one per order.
func (s *UserService) WithPendingOrders(ctx context.Context) ([]dto.UserResponse, error) {
	pending := model.OrderStatusPending
	orders, _, err := s.store.Orders().List(ctx, store.OrderFilter{Status: &pending}, store.Sort{}, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("list pending orders: %w", err)
	}

	seen := make(map[uuid.UUID]struct{}, len(orders))
	var userIDs []uuid.UUID
	for _, o := range orders {
		if _, ok := seen[o.UserID]; !ok {
			seen[o.UserID] = struct{}{}
			userIDs = append(userIDs, o.UserID)
		}
	}

	users, err := s.store.Users().ListByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	return out, nil
}

func (s *UserService) RecentByEmailDomain(ctx context.Context, domain string, page dto.PageRequest) (*dto.UserListResponse, error) {
	if domain == "" {
		return nil, validationErr("domain", "must not be empty")
	}
	cutoff := time.Now().Add(-recentUserWindow)
	key := cache.Key(store.KindUser, "recent", domain,
		strconv.Itoa(page.Page), strconv.Itoa(page.PageSize))
	return cachedQuery(ctx, s.cache, key, func() (*dto.UserListResponse, error) {
		return s.list(ctx, store.UserFilter{EmailDomain: domain, CreatedAfter: &cutoff}, page)
	})
}

func (s *UserService) WithProfiles(ctx context.Context, page dto.PageRequest) (*dto.UserListResponse, error) {
	key := cache.Key(store.KindUser, "with_profiles",
		strconv.Itoa(page.Page), strconv.Itoa(page.PageSize))
	return cachedQuery(ctx, s.cache, key, func() (*dto.UserListResponse, error) {
		return s.list(ctx, store.UserFilter{HasProfile: true, IncludeProfile: true}, page)
	})
}

// AllAsync submits a bulk read of every user to the shared executor and
// returns a handle. The task pages through the store and checks the context
// between pages so cancellation takes effect at those checkpoints.
func (s *UserService) AllAsync(ctx context.Context) (*async.Handle[dto.UsersBulkResponse], error) {
	return async.Submit(s.exec, ctx, func(ctx context.Context) (dto.UsersBulkResponse, error) {
		var resp dto.UsersBulkResponse
		for offset := 0; ; offset += bulkPageSize {
			if err := ctx.Err(); err != nil {
				return resp, err
			}
			users, total, err := s.store.Users().List(ctx, store.UserFilter{}, store.Sort{}, bulkPageSize, offset)
			if err != nil {
				return resp, fmt.Errorf("bulk list users: %w", err)
			}
			for i := range users {
				resp.Users = append(resp.Users, toUserResponse(&users[i]))
			}
			if offset+len(users) >= total || len(users) == 0 {
				break
			}
		}
		resp.Count = len(resp.Users)
		s.log.Info("bulk user read complete", "count", resp.Count)
		return resp, nil
	})
}
