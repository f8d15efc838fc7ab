package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clove/commerce-core/internal/async"
	"github.com/clove/commerce-core/internal/cache"
	"github.com/clove/commerce-core/internal/dto"
	"github.com/clove/commerce-core/internal/model"
	"github.com/clove/commerce-core/internal/store"
)

const maxSearchKeywords = 255

type ProductService struct {
	store store.Store
	cache cache.Cache
	exec  *async.Executor
	log   *slog.Logger
}

func NewProductService(st store.Store, c cache.Cache, exec *async.Executor, log *slog.Logger) *ProductService {
	return &ProductService{store: st, cache: c, exec: exec, log: log}
}

func validateProduct(price decimal.Decimal, keywords string) error {
	if !price.IsPositive() {
		return validationErr("price", "must be greater than zero")
	}
	if len(keywords) > maxSearchKeywords {
		return validationErr("search_keywords", "exceeds 255 characters")
	}
	return nil
}

func (s *ProductService) Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	return s.create(ctx, req, "")
}

// CreateWithImages is the only create path that materializes the image blob.
func (s *ProductService) CreateWithImages(ctx context.Context, req dto.CreateProductWithImagesRequest) (*dto.ProductResponse, error) {
	return s.create(ctx, req.CreateProductRequest, req.ImageData)
}

func (s *ProductService) create(ctx context.Context, req dto.CreateProductRequest, imageData string) (*dto.ProductResponse, error) {
	if err := validateProduct(req.Price, req.SearchKeywords); err != nil {
		return nil, err
	}
	if req.Stock < 0 {
		return nil, validationErr("stock", "must not be negative")
	}

	product := &model.Product{
		Name:           req.Name,
		Description:    req.Description,
		Price:          req.Price,
		Category:       req.Category,
		Stock:          req.Stock,
		SearchKeywords: req.SearchKeywords,
		ImageData:      imageData,
	}
	if err := s.store.Products().Put(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	invalidate(ctx, s.cache, store.KindProduct)

	resp := toProductResponse(product)
	return &resp, nil
}

func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	product, err := s.store.Products().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	resp := toProductResponse(product)
	return &resp, nil
}

func (s *ProductService) List(ctx context.Context, page dto.PageRequest) (*dto.ProductListResponse, error) {
	key := cache.Key(store.KindProduct, "list",
		strconv.Itoa(page.Page), strconv.Itoa(page.PageSize), page.Sort, page.Order)
	return cachedQuery(ctx, s.cache, key, func() (*dto.ProductListResponse, error) {
		return s.list(ctx, store.ProductFilter{}, page)
	})
}

func (s *ProductService) list(ctx context.Context, f store.ProductFilter, page dto.PageRequest) (*dto.ProductListResponse, error) {
	products, total, err := s.store.Products().List(ctx, f, sortFrom(page), page.PageSize, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	resp := &dto.ProductListResponse{Total: total, Page: page.Page, PageSize: page.PageSize}
	for i := range products {
		resp.Products = append(resp.Products, toProductResponse(&products[i]))
	}
	return resp, nil
}

func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	product, err := s.store.Products().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Category != nil {
		product.Category = *req.Category
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return nil, validationErr("stock", "must not be negative")
		}
		product.Stock = *req.Stock
	}
	if req.SearchKeywords != nil {
		product.SearchKeywords = *req.SearchKeywords
	}
	if req.ImageData != nil {
		product.ImageData = *req.ImageData
	}
	if err := validateProduct(product.Price, product.SearchKeywords); err != nil {
		return nil, err
	}

	if err := s.store.Products().Put(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	invalidate(ctx, s.cache, store.KindProduct)

	resp := toProductResponse(product)
	return &resp, nil
}

// Delete refuses to orphan order items referencing the product.
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	refs, err := s.store.OrderItems().CountByProductID(ctx, id)
	if err != nil {
		return fmt.Errorf("check product references: %w", err)
	}
	if refs > 0 {
		return fmt.Errorf("product referenced by %d order items: %w", refs, ErrConflict)
	}

	if err := s.store.Products().Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("delete product: %w", err)
	}
	invalidate(ctx, s.cache, store.KindProduct)
	return nil
}

// Search queries name, description and search keywords once each and merges
// by identifier in first-seen order.
func (s *ProductService) Search(ctx context.Context, keyword string) ([]dto.ProductResponse, error) {
	if keyword == "" {
		return nil, validationErr("keyword", "must not be empty")
	}

	filters := []store.ProductFilter{
		{NameLike: keyword},
		{DescLike: keyword},
		{KeywordsLike: keyword},
	}
	lists := make([][]model.Product, 0, len(filters))
	for _, f := range filters {
		products, _, err := s.store.Products().List(ctx, f, store.Sort{}, 0, 0)
		if err != nil {
			return nil, fmt.Errorf("search products: %w", err)
		}
		lists = append(lists, products)
	}

	merged := dedupByID(lists, func(p model.Product) uuid.UUID { return p.ID })
	out := make([]dto.ProductResponse, 0, len(merged))
	for i := range merged {
		out = append(out, toProductResponse(&merged[i]))
	}
	return out, nil
}

func (s *ProductService) ByCategory(ctx context.Context, category string, page dto.PageRequest) (*dto.ProductListResponse, error) {
	if category == "" {
		return nil, validationErr("category", "must not be empty")
	}
	key := cache.Key(store.KindProduct, "category", category,
		strconv.Itoa(page.Page), strconv.Itoa(page.PageSize))
	return cachedQuery(ctx, s.cache, key, func() (*dto.ProductListResponse, error) {
		return s.list(ctx, store.ProductFilter{Category: category}, page)
	})
}

func (s *ProductService) ByPriceRange(ctx context.Context, min, max decimal.Decimal, page dto.PageRequest) (*dto.ProductListResponse, error) {
	if min.GreaterThan(max) {
		return nil, validationErr("price_range", "min exceeds max")
	}
	key := cache.Key(store.KindProduct, "price_range", min.String(), max.String(),
		strconv.Itoa(page.Page), strconv.Itoa(page.PageSize))
	return cachedQuery(ctx, s.cache, key, func() (*dto.ProductListResponse, error) {
		return s.list(ctx, store.ProductFilter{MinPrice: &min, MaxPrice: &max}, page)
	})
}

func (s *ProductService) Available(ctx context.Context, page dto.PageRequest) (*dto.ProductListResponse, error) {
	key := cache.Key(store.KindProduct, "available",
		strconv.Itoa(page.Page), strconv.Itoa(page.PageSize))
	return cachedQuery(ctx, s.cache, key, func() (*dto.ProductListResponse, error) {
		return s.list(ctx, store.ProductFilter{InStock: true}, page)
	})
}

func (s *ProductService) WithImages(ctx context.Context, page dto.PageRequest) (*dto.ProductListResponse, error) {
	key := cache.Key(store.KindProduct, "with_images",
		strconv.Itoa(page.Page), strconv.Itoa(page.PageSize))
	return cachedQuery(ctx, s.cache, key, func() (*dto.ProductListResponse, error) {
		return s.list(ctx, store.ProductFilter{HasImages: true, IncludeImages: true}, page)
	})
}

func (s *ProductService) ByCategoryPriceStock(ctx context.Context, category string, minPrice decimal.Decimal, page dto.PageRequest) (*dto.ProductListResponse, error) {
	if category == "" {
		return nil, validationErr("category", "must not be empty")
	}
	f := store.ProductFilter{Category: category, MinPrice: &minPrice, InStock: true}
	key := cache.Key(store.KindProduct, "category_price_stock", category, minPrice.String(),
		strconv.Itoa(page.Page), strconv.Itoa(page.PageSize))
	return cachedQuery(ctx, s.cache, key, func() (*dto.ProductListResponse, error) {
		return s.list(ctx, f, page)
	})
}

// AllAsync submits a bulk read of every product, aggregating total stock
// value in one O(items) pass.
func (s *ProductService) AllAsync(ctx context.Context) (*async.Handle[dto.ProductsBulkResponse], error) {
	return async.Submit(s.exec, ctx, func(ctx context.Context) (dto.ProductsBulkResponse, error) {
		resp := dto.ProductsBulkResponse{StockValue: decimal.Zero}
		for offset := 0; ; offset += bulkPageSize {
			if err := ctx.Err(); err != nil {
				return resp, err
			}
			products, total, err := s.store.Products().List(ctx, store.ProductFilter{}, store.Sort{}, bulkPageSize, offset)
			if err != nil {
				return resp, fmt.Errorf("bulk list products: %w", err)
			}
			for i := range products {
				p := &products[i]
				resp.Products = append(resp.Products, toProductResponse(p))
				resp.StockValue = resp.StockValue.Add(p.Price.Mul(decimal.NewFromInt(int64(p.Stock))))
			}
			if offset+len(products) >= total || len(products) == 0 {
				break
			}
		}
		resp.Count = len(resp.Products)
		s.log.Info("bulk product read complete", "count", resp.Count)
		return resp, nil
	})
}
