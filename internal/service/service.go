// Package service implements the per-kind query services: CRUD, named filter
// queries, derived fields, and the cached and asynchronous read paths.
package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/clove/commerce-core/internal/cache"
	"github.com/clove/commerce-core/internal/dto"
	"github.com/clove/commerce-core/internal/model"
	"github.com/clove/commerce-core/internal/store"
)

// bulkPageSize bounds how many rows a bulk async task loads per store query.
const bulkPageSize = 500

// cachedQuery serves fetch through the cache: hit returns the decoded
// snapshot, miss runs fetch and stores its JSON. A nil cache passes through.
func cachedQuery[T any](ctx context.Context, c cache.Cache, key string, fetch func() (*T, error)) (*T, error) {
	if c != nil {
		if data, ok := c.Get(ctx, key); ok {
			var v T
			if json.Unmarshal(data, &v) == nil {
				return &v, nil
			}
		}
	}
	v, err := fetch()
	if err != nil {
		return nil, err
	}
	if c != nil {
		if data, err := json.Marshal(v); err == nil {
			c.Set(ctx, key, data)
		}
	}
	return v, nil
}

func invalidate(ctx context.Context, c cache.Cache, kind store.Kind) {
	if c != nil {
		c.InvalidateKind(ctx, kind)
	}
}

// dedupByID merges multi-source search results with set semantics: each
// identifier appears once, in first-seen order, with O(1) membership checks.
func dedupByID[T any](lists [][]T, id func(T) uuid.UUID) []T {
	seen := make(map[uuid.UUID]struct{})
	var out []T
	for _, list := range lists {
		for _, v := range list {
			if _, ok := seen[id(v)]; ok {
				continue
			}
			seen[id(v)] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func sortFrom(p dto.PageRequest) store.Sort {
	return store.Sort{Field: p.Sort, Desc: p.Order != "asc"}
}

// --- response converters ---

func toUserResponse(u *model.User) dto.UserResponse {
	resp := dto.UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		ProfileData: u.ProfileData,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
	for i := range u.Orders {
		resp.Orders = append(resp.Orders, toOrderResponse(&u.Orders[i]))
	}
	return resp
}

func toProductResponse(p *model.Product) dto.ProductResponse {
	return dto.ProductResponse{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		Price:          p.Price,
		Category:       p.Category,
		Stock:          p.Stock,
		SearchKeywords: p.SearchKeywords,
		ImageData:      p.ImageData,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func toOrderResponse(o *model.Order) dto.OrderResponse {
	resp := dto.OrderResponse{
		ID:          o.ID,
		UserID:      o.UserID,
		TotalAmount: o.TotalAmount,
		Status:      o.Status,
		OrderDate:   o.OrderDate,
		Notes:       o.Notes,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	for i := range o.Items {
		resp.Items = append(resp.Items, toOrderItemResponse(&o.Items[i]))
	}
	return resp
}

func toOrderItemResponse(it *model.OrderItem) dto.OrderItemResponse {
	resp := dto.OrderItemResponse{
		ID:             it.ID,
		ProductID:      it.ProductID,
		Quantity:       it.Quantity,
		UnitPrice:      it.UnitPrice,
		LineTotal:      it.LineTotal(),
		ProductMissing: it.ProductMissing,
	}
	if it.Product != nil {
		p := toProductResponse(it.Product)
		resp.Product = &p
	}
	return resp
}
