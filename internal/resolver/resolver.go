// Package resolver attaches related entities to root entities on explicit
// request. It loads each relation with one batched store query per relation,
// independent of the number of roots, so resolving N orders never issues N
// per-order lookups.
package resolver

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/clove/commerce-core/internal/model"
	"github.com/clove/commerce-core/internal/store"
)

// Include selects which relations to attach. The zero value resolves nothing.
type Include struct {
	// Items attaches order items to orders.
	Items bool
	// ItemProducts attaches the referenced product to each item. Implies Items
	// when resolving orders.
	ItemProducts bool
	// UserOrders attaches orders to users.
	UserOrders bool
}

type Resolver struct {
	st store.Store
}

func New(st store.Store) *Resolver {
	return &Resolver{st: st}
}

// ResolveOrders attaches items (and optionally their products) to the given
// orders in place. A dangling product reference marks the item ProductMissing
// instead of failing the batch.
func (r *Resolver) ResolveOrders(ctx context.Context, orders []model.Order, inc Include) error {
	if len(orders) == 0 || (!inc.Items && !inc.ItemProducts) {
		return nil
	}

	orderIDs := make([]uuid.UUID, len(orders))
	for i := range orders {
		orderIDs[i] = orders[i].ID
	}
	items, err := r.st.OrderItems().ListByOrderIDs(ctx, orderIDs)
	if err != nil {
		return fmt.Errorf("resolve order items: %w", err)
	}

	if inc.ItemProducts {
		if err := r.attachProducts(ctx, items); err != nil {
			return err
		}
	}

	byOrder := make(map[uuid.UUID][]model.OrderItem, len(orders))
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}
	for i := range orders {
		orders[i].Items = byOrder[orders[i].ID]
	}
	return nil
}

// attachProducts loads all distinct referenced products in one query and sets
// each item's Product, or ProductMissing for dangling references.
func (r *Resolver) attachProducts(ctx context.Context, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[uuid.UUID]struct{}, len(items))
	var ids []uuid.UUID
	for _, it := range items {
		if _, ok := seen[it.ProductID]; !ok {
			seen[it.ProductID] = struct{}{}
			ids = append(ids, it.ProductID)
		}
	}

	products, err := r.st.Products().ListByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("resolve products: %w", err)
	}
	byID := make(map[uuid.UUID]*model.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	for i := range items {
		if p, ok := byID[items[i].ProductID]; ok {
			items[i].Product = p
		} else {
			items[i].ProductMissing = true
		}
	}
	return nil
}

// ResolveUsers attaches orders to the given users in place with one batched
// query over the user identifier set.
func (r *Resolver) ResolveUsers(ctx context.Context, users []model.User, inc Include) error {
	if len(users) == 0 || !inc.UserOrders {
		return nil
	}

	userIDs := make([]uuid.UUID, len(users))
	for i := range users {
		userIDs[i] = users[i].ID
	}
	orders, err := r.st.Orders().ListByUserIDs(ctx, userIDs)
	if err != nil {
		return fmt.Errorf("resolve user orders: %w", err)
	}

	if inc.Items || inc.ItemProducts {
		if err := r.ResolveOrders(ctx, orders, inc); err != nil {
			return err
		}
	}

	byUser := make(map[uuid.UUID][]model.Order, len(users))
	for _, o := range orders {
		byUser[o.UserID] = append(byUser[o.UserID], o)
	}
	for i := range users {
		users[i].Orders = byUser[users[i].ID]
	}
	return nil
}
