package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// ValidOrderStatus reports whether s is one of the allowed status values.
// Transitions between statuses are not validated.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

type User struct {
	ID        uuid.UUID
	Username  string
	Email     string
	FirstName string
	LastName  string
	CreatedAt time.Time
	UpdatedAt time.Time

	// ProfileData is only populated when explicitly requested.
	ProfileData string

	// Orders is attached by the resolver on request, never loaded eagerly.
	Orders []Order
}

type Product struct {
	ID          uuid.UUID
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	Stock       int
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// ImageData is only populated when explicitly requested.
	ImageData string

	// SearchKeywords is optional and capped at 255 characters.
	SearchKeywords string
}

type Order struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	TotalAmount decimal.Decimal
	Status      OrderStatus
	OrderDate   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Notes is only populated when explicitly requested.
	Notes string

	// Items is attached by the resolver on request, never loaded eagerly.
	Items []OrderItem
}

type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	// UnitPrice is a snapshot of the product price at order time and is
	// never recalculated from the current product.
	UnitPrice decimal.Decimal
	CreatedAt time.Time

	// Product is attached by the resolver on request. ProductMissing marks
	// a dangling reference the resolver could not load.
	Product        *Product
	ProductMissing bool
}

// LineTotal is unit price times quantity in exact decimal arithmetic.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type OrderEvent struct {
	OrderID uuid.UUID `json:"order_id"`
	UserID  uuid.UUID `json:"user_id"`
}
