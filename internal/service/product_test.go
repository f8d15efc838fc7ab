package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clove/commerce-core/internal/async"
	"github.com/clove/commerce-core/internal/cache"
	"github.com/clove/commerce-core/internal/dto"
	"github.com/clove/commerce-core/internal/model"
	"github.com/clove/commerce-core/internal/store"
	"github.com/clove/commerce-core/internal/store/memory"
)

func newProductService(t *testing.T, st store.Store, c cache.Cache) *ProductService {
	t.Helper()
	exec := async.New(async.Config{Workers: 2, QueueSize: 4})
	t.Cleanup(exec.Shutdown)
	return NewProductService(st, c, exec, testLogger())
}

func createProductReq(name string, price float64, category string, stock int) dto.CreateProductRequest {
	return dto.CreateProductRequest{
		Name: name, Price: decimal.NewFromFloat(price), Category: category, Stock: stock,
	}
}

func TestProductService_Create(t *testing.T) {
	svc := newProductService(t, memory.New(), nil)

	resp, err := svc.Create(context.Background(), createProductReq("Laptop Pro", 1299.99, "Electronics", 50))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, resp.ID)
	assert.True(t, resp.Price.Equal(decimal.NewFromFloat(1299.99)))
	assert.Empty(t, resp.ImageData)
}

func TestProductService_Create_InvalidPrice(t *testing.T) {
	svc := newProductService(t, memory.New(), nil)

	var verr *ValidationError
	_, err := svc.Create(context.Background(), createProductReq("Freebie", 0, "Misc", 1))
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "price", verr.Field)

	_, err = svc.Create(context.Background(), createProductReq("Refund", -5, "Misc", 1))
	assert.ErrorAs(t, err, &verr)
}

func TestProductService_Create_KeywordsTooLong(t *testing.T) {
	svc := newProductService(t, memory.New(), nil)

	req := createProductReq("Widget", 9.99, "Misc", 1)
	for len(req.SearchKeywords) <= maxSearchKeywords {
		req.SearchKeywords += "keyword "
	}
	_, err := svc.Create(context.Background(), req)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "search_keywords", verr.Field)
}

func TestProductService_CreateWithImages(t *testing.T) {
	svc := newProductService(t, memory.New(), nil)

	resp, err := svc.CreateWithImages(context.Background(), dto.CreateProductWithImagesRequest{
		CreateProductRequest: createProductReq("Laptop Pro", 1299.99, "Electronics", 50),
		ImageData:            "base64-blob",
	})
	require.NoError(t, err)
	assert.Equal(t, "base64-blob", resp.ImageData)
}

func TestProductService_Update(t *testing.T) {
	svc := newProductService(t, memory.New(), nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, createProductReq("Widget", 9.99, "Misc", 10))
	require.NoError(t, err)

	newPrice := decimal.NewFromFloat(12.49)
	newStock := 25
	resp, err := svc.Update(ctx, created.ID, dto.UpdateProductRequest{Price: &newPrice, Stock: &newStock})
	require.NoError(t, err)
	assert.True(t, resp.Price.Equal(newPrice))
	assert.Equal(t, 25, resp.Stock)
	assert.Equal(t, "Widget", resp.Name)
}

func TestProductService_Delete_ReferencedConflicts(t *testing.T) {
	st := memory.New()
	svc := newProductService(t, st, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, createProductReq("Widget", 9.99, "Misc", 10))
	require.NoError(t, err)
	require.NoError(t, st.OrderItems().Put(ctx, &model.OrderItem{
		OrderID: uuid.New(), ProductID: created.ID, Quantity: 1, UnitPrice: decimal.NewFromFloat(9.99),
	}))

	assert.ErrorIs(t, svc.Delete(ctx, created.ID), ErrConflict)

	unreferenced, err := svc.Create(ctx, createProductReq("Gadget", 4.99, "Misc", 1))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, unreferenced.ID))
	assert.ErrorIs(t, svc.Delete(ctx, unreferenced.ID), ErrProductNotFound)
}

func TestProductService_Search(t *testing.T) {
	svc := newProductService(t, memory.New(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, dto.CreateProductRequest{
		Name: "Laptop Pro", Description: "Fast machine",
		Price: decimal.NewFromFloat(1299.99), Category: "Electronics", Stock: 50,
		SearchKeywords: "laptop computer portable",
	})
	require.NoError(t, err)
	// Matches both the name and the keywords filter; must appear once.
	_, err = svc.Create(ctx, dto.CreateProductRequest{
		Name: "Laptop Sleeve", Description: "Protective cover",
		Price: decimal.NewFromFloat(19.99), Category: "Accessories", Stock: 100,
		SearchKeywords: "laptop bag",
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, createProductReq("Desk Chair", 199.99, "Furniture", 10))
	require.NoError(t, err)

	results, err := svc.Search(ctx, "laptop")
	require.NoError(t, err)
	assert.Len(t, results, 2)

	seen := make(map[uuid.UUID]struct{})
	for _, r := range results {
		_, dup := seen[r.ID]
		assert.False(t, dup)
		seen[r.ID] = struct{}{}
	}
}

func TestProductService_ByPriceRange(t *testing.T) {
	svc := newProductService(t, memory.New(), nil)
	ctx := context.Background()
	page := dto.PageRequest{Page: 1, PageSize: 20}

	_, err := svc.Create(ctx, createProductReq("Cheap", 5, "Misc", 1))
	require.NoError(t, err)
	_, err = svc.Create(ctx, createProductReq("Mid", 50, "Misc", 1))
	require.NoError(t, err)
	_, err = svc.Create(ctx, createProductReq("Pricey", 500, "Misc", 1))
	require.NoError(t, err)

	resp, err := svc.ByPriceRange(ctx, decimal.NewFromInt(10), decimal.NewFromInt(100), page)
	require.NoError(t, err)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "Mid", resp.Products[0].Name)

	_, err = svc.ByPriceRange(ctx, decimal.NewFromInt(100), decimal.NewFromInt(10), page)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestProductService_Available(t *testing.T) {
	svc := newProductService(t, memory.New(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, createProductReq("In Stock", 10, "Misc", 3))
	require.NoError(t, err)
	_, err = svc.Create(ctx, createProductReq("Sold Out", 10, "Misc", 0))
	require.NoError(t, err)

	resp, err := svc.Available(ctx, dto.PageRequest{Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "In Stock", resp.Products[0].Name)
}

func TestProductService_List_Pagination(t *testing.T) {
	svc := newProductService(t, memory.New(), nil)
	ctx := context.Background()

	for _, name := range []string{"Alpha", "Beta", "Gamma"} {
		_, err := svc.Create(ctx, createProductReq(name, 10, "Misc", 1))
		require.NoError(t, err)
	}

	page1, err := svc.List(ctx, dto.PageRequest{Page: 1, PageSize: 2, Sort: "name", Order: "asc"})
	require.NoError(t, err)
	assert.Equal(t, 3, page1.Total)
	require.Len(t, page1.Products, 2)
	assert.Equal(t, "Alpha", page1.Products[0].Name)

	page2, err := svc.List(ctx, dto.PageRequest{Page: 2, PageSize: 2, Sort: "name", Order: "asc"})
	require.NoError(t, err)
	assert.Equal(t, 3, page2.Total)
	require.Len(t, page2.Products, 1)
	assert.Equal(t, "Gamma", page2.Products[0].Name)
}

func TestProductService_List_CacheInvalidatedOnWrite(t *testing.T) {
	c := cache.NewLRU(16, time.Minute)
	svc := newProductService(t, memory.New(), c)
	ctx := context.Background()
	page := dto.PageRequest{Page: 1, PageSize: 20}

	_, err := svc.Create(ctx, createProductReq("Widget", 10, "Misc", 1))
	require.NoError(t, err)

	first, err := svc.List(ctx, page)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Total)

	_, err = svc.Create(ctx, createProductReq("Gadget", 20, "Misc", 1))
	require.NoError(t, err)

	second, err := svc.List(ctx, page)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Total)
}

func TestProductService_AllAsync_StockValue(t *testing.T) {
	svc := newProductService(t, memory.New(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, createProductReq("A", 10, "Misc", 3))
	require.NoError(t, err)
	_, err = svc.Create(ctx, createProductReq("B", 2.5, "Misc", 4))
	require.NoError(t, err)

	handle, err := svc.AllAsync(ctx)
	require.NoError(t, err)
	resp, err := handle.Await(time.Second)
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Count)
	// 10*3 + 2.5*4 = 40
	assert.True(t, resp.StockValue.Equal(decimal.NewFromInt(40)), "stock value = %s", resp.StockValue)
}
