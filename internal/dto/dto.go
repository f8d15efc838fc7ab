package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clove/commerce-core/internal/model"
)

// --- pagination ---

type PageRequest struct {
	Page     int    `form:"page,default=1" binding:"min=1"`
	PageSize int    `form:"page_size,default=20" binding:"min=1,max=100"`
	Sort     string `form:"sort"`
	Order    string `form:"order,default=desc" binding:"oneof=asc desc"`
}

func (p PageRequest) Offset() int { return (p.Page - 1) * p.PageSize }

// --- users ---

type CreateUserRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
}

type CreateUserWithProfileRequest struct {
	CreateUserRequest
	ProfileData string `json:"profile_data" binding:"required"`
}

type UpdateUserRequest struct {
	Username  *string `json:"username"`
	Email     *string `json:"email" binding:"omitempty,email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	// ProfileData is only written when explicitly supplied.
	ProfileData *string `json:"profile_data"`
}

type UserResponse struct {
	ID          uuid.UUID       `json:"id"`
	Username    string          `json:"username"`
	Email       string          `json:"email"`
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	ProfileData string          `json:"profile_data,omitempty"`
	Orders      []OrderResponse `json:"orders,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type UserListResponse struct {
	Users    []UserResponse `json:"users"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

type UsersBulkResponse struct {
	Users []UserResponse `json:"users"`
	Count int            `json:"count"`
}

// --- products ---

type CreateProductRequest struct {
	Name           string          `json:"name" binding:"required,max=100"`
	Description    string          `json:"description" binding:"max=500"`
	Price          decimal.Decimal `json:"price" binding:"required"`
	Category       string          `json:"category" binding:"required,max=50"`
	Stock          int             `json:"stock" binding:"min=0"`
	SearchKeywords string          `json:"search_keywords" binding:"max=255"`
}

type CreateProductWithImagesRequest struct {
	CreateProductRequest
	ImageData string `json:"image_data" binding:"required"`
}

type UpdateProductRequest struct {
	Name           *string          `json:"name" binding:"omitempty,max=100"`
	Description    *string          `json:"description" binding:"omitempty,max=500"`
	Price          *decimal.Decimal `json:"price"`
	Category       *string          `json:"category" binding:"omitempty,max=50"`
	Stock          *int             `json:"stock" binding:"omitempty,min=0"`
	SearchKeywords *string          `json:"search_keywords" binding:"omitempty,max=255"`
	// ImageData is only written when explicitly supplied.
	ImageData *string `json:"image_data"`
}

type ProductResponse struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `json:"price"`
	Category       string          `json:"category"`
	Stock          int             `json:"stock"`
	SearchKeywords string          `json:"search_keywords,omitempty"`
	ImageData      string          `json:"image_data,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

type ProductsBulkResponse struct {
	Products   []ProductResponse `json:"products"`
	Count      int               `json:"count"`
	StockValue decimal.Decimal   `json:"stock_value"`
}

// --- orders ---

type OrderItemPayload struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

type CreateOrderRequest struct {
	UserID uuid.UUID          `json:"user_id" binding:"required"`
	Items  []OrderItemPayload `json:"items" binding:"required,min=1,dive"`
}

type CreateOrderWithNotesRequest struct {
	CreateOrderRequest
	Notes string `json:"notes" binding:"required"`
}

type UpdateOrderRequest struct {
	Status    *model.OrderStatus `json:"status"`
	OrderDate *time.Time         `json:"order_date"`
	// Notes is only written when explicitly supplied.
	Notes *string `json:"notes"`
	// Items replaces the full item set when supplied; unit prices are
	// re-snapshotted and the total recomputed.
	Items *[]OrderItemPayload `json:"items"`
}

type OrderItemResponse struct {
	ID             uuid.UUID        `json:"id"`
	ProductID      uuid.UUID        `json:"product_id"`
	Quantity       int              `json:"quantity"`
	UnitPrice      decimal.Decimal  `json:"unit_price"`
	LineTotal      decimal.Decimal  `json:"line_total"`
	Product        *ProductResponse `json:"product,omitempty"`
	ProductMissing bool             `json:"product_missing,omitempty"`
}

type OrderResponse struct {
	ID          uuid.UUID           `json:"id"`
	UserID      uuid.UUID           `json:"user_id"`
	TotalAmount decimal.Decimal     `json:"total_amount"`
	Status      model.OrderStatus   `json:"status"`
	OrderDate   time.Time           `json:"order_date"`
	Notes       string              `json:"notes,omitempty"`
	Items       []OrderItemResponse `json:"items,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

type OrderListResponse struct {
	Orders   []OrderResponse `json:"orders"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

type OrdersBulkResponse struct {
	Orders      []OrderResponse `json:"orders"`
	Count       int             `json:"count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}
