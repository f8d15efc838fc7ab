// Package store defines the entity store adapter: uniform, per-kind access to
// durable records. It is the only layer that touches the underlying store.
// Queries evaluate a filter as a single store-side predicate pass and never
// join implicitly; relationship loading belongs to the resolver.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clove/commerce-core/internal/model"
)

// ErrNotFound is returned when the identifier does not exist.
var ErrNotFound = errors.New("entity not found")

// Kind names an entity kind, used for cache tagging and metrics.
type Kind string

const (
	KindUser      Kind = "user"
	KindProduct   Kind = "product"
	KindOrder     Kind = "order"
	KindOrderItem Kind = "order_item"
)

// Sort selects result ordering. Field is validated against the per-kind
// allow-list; unknown fields fall back to created_at.
type Sort struct {
	Field string
	Desc  bool
}

// UserFilter is evaluated in one pass store-side. Zero values mean "not set".
type UserFilter struct {
	Username     string // exact match
	Email        string // exact match
	FirstName    string // exact match
	LastNameLike string // substring match
	EmailDomain  string // suffix match on email
	CreatedAfter *time.Time
	HasProfile   bool // only users with a profile blob set

	// IncludeProfile selects the profile blob column. List results omit
	// large blobs unless this is set.
	IncludeProfile bool
}

// ProductFilter is evaluated in one pass store-side.
type ProductFilter struct {
	Category     string
	NameLike     string
	DescLike     string
	KeywordsLike string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	InStock      bool // stock > 0
	HasImages    bool // only products with an image blob set

	IncludeImages bool
}

// OrderFilter is evaluated in one pass store-side.
type OrderFilter struct {
	UserID    *uuid.UUID
	Status    *model.OrderStatus
	Statuses  []model.OrderStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	MinAmount *decimal.Decimal
	HasNotes  bool

	IncludeNotes bool
}

type UserStore interface {
	// GetByID returns the full record, blob included.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// Put inserts or fully replaces. A nil ID is assigned; timestamps are
	// maintained by the store.
	Put(ctx context.Context, u *model.User) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f UserFilter, sort Sort, limit, offset int) ([]model.User, int, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.User, error)
	Count(ctx context.Context) (int, error)
}

type ProductStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	Put(ctx context.Context, p *model.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ProductFilter, sort Sort, limit, offset int) ([]model.Product, int, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error)
	Count(ctx context.Context) (int, error)
}

type OrderStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	Put(ctx context.Context, o *model.Order) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f OrderFilter, sort Sort, limit, offset int) ([]model.Order, int, error)
	ListByUserIDs(ctx context.Context, userIDs []uuid.UUID) ([]model.Order, error)
	Count(ctx context.Context) (int, error)
}

type OrderItemStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.OrderItem, error)
	Put(ctx context.Context, it *model.OrderItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListByOrderIDs returns the items of all given orders in one query.
	ListByOrderIDs(ctx context.Context, orderIDs []uuid.UUID) ([]model.OrderItem, error)
	// DeleteByOrderID removes all items of an order (cascade on order delete).
	DeleteByOrderID(ctx context.Context, orderID uuid.UUID) error
	CountByProductID(ctx context.Context, productID uuid.UUID) (int, error)
}

// Store bundles the per-kind stores of one backend.
type Store interface {
	Users() UserStore
	Products() ProductStore
	Orders() OrderStore
	OrderItems() OrderItemStore
	Ping(ctx context.Context) error
}
