package memory

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clove/commerce-core/internal/model"
	"github.com/clove/commerce-core/internal/store"
)

func TestUserStore_CRUD(t *testing.T) {
	s := New()
	ctx := context.Background()

	u := &model.User{Username: "john_doe", Email: "john@example.com", FirstName: "John", LastName: "Doe"}
	require.NoError(t, s.Users().Put(ctx, u))
	require.NotEqual(t, uuid.Nil, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	got, err := s.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "john_doe", got.Username)

	got.Email = "john.doe@example.com"
	require.NoError(t, s.Users().Put(ctx, got))
	got, err = s.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "john.doe@example.com", got.Email)

	require.NoError(t, s.Users().Delete(ctx, u.ID))
	_, err = s.Users().GetByID(ctx, u.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.Users().Delete(ctx, u.ID), store.ErrNotFound)
}

func TestUserStore_ListFilters(t *testing.T) {
	s := New()
	ctx := context.Background()

	seedUsers := []*model.User{
		{Username: "john_doe", Email: "john@example.com", FirstName: "John", LastName: "Doe", ProfileData: "bio"},
		{Username: "jane_smith", Email: "jane@example.com", FirstName: "Jane", LastName: "Smith"},
		{Username: "bob_wilson", Email: "bob@corp.io", FirstName: "Bob", LastName: "Wilson"},
		{Username: "eve_near", Email: "eve@notexample.com", FirstName: "Eve", LastName: "Near"},
	}
	for _, u := range seedUsers {
		require.NoError(t, s.Users().Put(ctx, u))
	}

	users, total, err := s.Users().List(ctx, store.UserFilter{Username: "john_doe"}, store.Sort{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, "john@example.com", users[0].Email)

	// Domain matching is anchored at the @, so notexample.com is excluded.
	users, total, err = s.Users().List(ctx, store.UserFilter{EmailDomain: "example.com"}, store.Sort{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, u := range users {
		assert.True(t, strings.HasSuffix(u.Email, "@example.com"))
	}

	users, total, err = s.Users().List(ctx, store.UserFilter{LastNameLike: "smi"}, store.Sort{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "jane_smith", users[0].Username)

	users, total, err = s.Users().List(ctx, store.UserFilter{HasProfile: true}, store.Sort{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	// Blob columns stay empty unless projection is requested.
	assert.Empty(t, users[0].ProfileData)

	users, _, err = s.Users().List(ctx, store.UserFilter{HasProfile: true, IncludeProfile: true}, store.Sort{}, 0, 0)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bio", users[0].ProfileData)
}

func TestUserStore_Pagination(t *testing.T) {
	s := New()
	ctx := context.Background()

	ids := make([]uuid.UUID, 0, 5)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		u := &model.User{Username: name, Email: name + "@example.com"}
		require.NoError(t, s.Users().Put(ctx, u))
		ids = append(ids, u.ID)
	}

	page1, total, err := s.Users().List(ctx, store.UserFilter{}, store.Sort{Field: "username"}, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page1, 2)
	assert.Equal(t, "a", page1[0].Username)
	assert.Equal(t, "b", page1[1].Username)

	page3, total, err := s.Users().List(ctx, store.UserFilter{}, store.Sort{Field: "username"}, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page3, 1)
	assert.Equal(t, "e", page3[0].Username)

	empty, total, err := s.Users().List(ctx, store.UserFilter{}, store.Sort{Field: "username"}, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Empty(t, empty)

	got, err := s.Users().ListByIDs(ctx, []uuid.UUID{ids[0], ids[2], uuid.New()})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	n, err := s.Users().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestProductStore_ListFilters(t *testing.T) {
	s := New()
	ctx := context.Background()

	seedProducts := []*model.Product{
		{Name: "Laptop Pro", Description: "Fast laptop", Price: decimal.NewFromFloat(1299.99), Category: "Electronics", Stock: 50, SearchKeywords: "laptop computer"},
		{Name: "Wireless Mouse", Description: "Ergonomic mouse", Price: decimal.NewFromFloat(29.99), Category: "Electronics", Stock: 0, ImageData: "img"},
		{Name: "Desk Chair", Description: "Office chair", Price: decimal.NewFromFloat(199.99), Category: "Furniture", Stock: 10},
	}
	for _, p := range seedProducts {
		require.NoError(t, s.Products().Put(ctx, p))
	}

	_, total, err := s.Products().List(ctx, store.ProductFilter{Category: "Electronics"}, store.Sort{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	products, total, err := s.Products().List(ctx, store.ProductFilter{NameLike: "laptop"}, store.Sort{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Laptop Pro", products[0].Name)

	min := decimal.NewFromFloat(100)
	max := decimal.NewFromFloat(500)
	products, _, err = s.Products().List(ctx, store.ProductFilter{MinPrice: &min, MaxPrice: &max}, store.Sort{}, 0, 0)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Desk Chair", products[0].Name)

	_, total, err = s.Products().List(ctx, store.ProductFilter{InStock: true}, store.Sort{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	products, _, err = s.Products().List(ctx, store.ProductFilter{HasImages: true, IncludeImages: true}, store.Sort{}, 0, 0)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "img", products[0].ImageData)

	// Batched lookups never materialize the image blob.
	byID, err := s.Products().ListByIDs(ctx, []uuid.UUID{seedProducts[1].ID})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Empty(t, byID[0].ImageData)

	products, _, err = s.Products().List(ctx, store.ProductFilter{}, store.Sort{Field: "price"}, 0, 0)
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "Wireless Mouse", products[0].Name)
	assert.Equal(t, "Laptop Pro", products[2].Name)
}

func TestOrderStore_ListFilters(t *testing.T) {
	s := New()
	ctx := context.Background()

	userA, userB := uuid.New(), uuid.New()
	now := time.Now().UTC()
	seedOrders := []*model.Order{
		{UserID: userA, Status: model.OrderStatusPending, TotalAmount: decimal.NewFromFloat(100), OrderDate: now.Add(-48 * time.Hour), Notes: "gift wrap"},
		{UserID: userA, Status: model.OrderStatusDelivered, TotalAmount: decimal.NewFromFloat(50), OrderDate: now.Add(-24 * time.Hour)},
		{UserID: userB, Status: model.OrderStatusConfirmed, TotalAmount: decimal.NewFromFloat(300), OrderDate: now},
	}
	for _, o := range seedOrders {
		require.NoError(t, s.Orders().Put(ctx, o))
	}

	_, total, err := s.Orders().List(ctx, store.OrderFilter{UserID: &userA}, store.Sort{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	pending := model.OrderStatusPending
	orders, _, err := s.Orders().List(ctx, store.OrderFilter{Status: &pending}, store.Sort{}, 0, 0)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, userA, orders[0].UserID)

	active := []model.OrderStatus{model.OrderStatusPending, model.OrderStatusConfirmed, model.OrderStatusShipped}
	_, total, err = s.Orders().List(ctx, store.OrderFilter{Statuses: active}, store.Sort{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	from := now.Add(-36 * time.Hour)
	_, total, err = s.Orders().List(ctx, store.OrderFilter{DateFrom: &from}, store.Sort{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	min := decimal.NewFromFloat(100)
	_, total, err = s.Orders().List(ctx, store.OrderFilter{MinAmount: &min}, store.Sort{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	orders, _, err = s.Orders().List(ctx, store.OrderFilter{HasNotes: true, IncludeNotes: true}, store.Sort{}, 0, 0)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "gift wrap", orders[0].Notes)

	byUser, err := s.Orders().ListByUserIDs(ctx, []uuid.UUID{userA})
	require.NoError(t, err)
	require.Len(t, byUser, 2)
	// Newest order first.
	assert.True(t, byUser[0].OrderDate.After(byUser[1].OrderDate))
}

func TestOrderItemStore(t *testing.T) {
	s := New()
	ctx := context.Background()

	orderA, orderB := uuid.New(), uuid.New()
	productID := uuid.New()
	items := []*model.OrderItem{
		{OrderID: orderA, ProductID: productID, Quantity: 2, UnitPrice: decimal.NewFromFloat(10)},
		{OrderID: orderA, ProductID: uuid.New(), Quantity: 1, UnitPrice: decimal.NewFromFloat(5)},
		{OrderID: orderB, ProductID: productID, Quantity: 3, UnitPrice: decimal.NewFromFloat(10)},
	}
	for _, it := range items {
		require.NoError(t, s.OrderItems().Put(ctx, it))
	}

	got, err := s.OrderItems().ListByOrderIDs(ctx, []uuid.UUID{orderA})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	n, err := s.OrderItems().CountByProductID(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.OrderItems().DeleteByOrderID(ctx, orderA))
	got, err = s.OrderItems().ListByOrderIDs(ctx, []uuid.UUID{orderA, orderB})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, orderB, got[0].OrderID)
}
