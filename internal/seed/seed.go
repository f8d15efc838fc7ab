// Package seed loads the initial dataset. Run is invoked once at startup and
// is a no-op unless the store is empty.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clove/commerce-core/internal/model"
	"github.com/clove/commerce-core/internal/store"
)

func Run(ctx context.Context, st store.Store, log *slog.Logger) error {
	n, err := st.Users().Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		log.Info("store not empty, skipping seed", "users", n)
		return nil
	}

	users := []*model.User{
		{Username: "john_doe", Email: "john.doe@example.com", FirstName: "John", LastName: "Doe"},
		{Username: "jane_smith", Email: "jane.smith@example.com", FirstName: "Jane", LastName: "Smith"},
		{Username: "bob_wilson", Email: "bob.wilson@example.com", FirstName: "Bob", LastName: "Wilson"},
	}
	for _, u := range users {
		if err := st.Users().Put(ctx, u); err != nil {
			return fmt.Errorf("seed user %s: %w", u.Username, err)
		}
	}

	products := []*model.Product{
		{Name: "Laptop Pro", Description: "High-performance laptop for professionals",
			Price: decimal.RequireFromString("1299.99"), Category: "Electronics", Stock: 50},
		{Name: "Wireless Mouse", Description: "Ergonomic wireless mouse",
			Price: decimal.RequireFromString("29.99"), Category: "Electronics", Stock: 200},
		{Name: "Mechanical Keyboard", Description: "RGB mechanical keyboard",
			Price: decimal.RequireFromString("149.99"), Category: "Electronics", Stock: 75},
	}
	for _, p := range products {
		if err := st.Products().Put(ctx, p); err != nil {
			return fmt.Errorf("seed product %s: %w", p.Name, err)
		}
	}

	type seedOrder struct {
		user   *model.User
		status model.OrderStatus
		items  []model.OrderItem
	}
	seedOrders := []seedOrder{
		{user: users[0], status: model.OrderStatusPending, items: []model.OrderItem{
			{ProductID: products[0].ID, Quantity: 1, UnitPrice: products[0].Price},
			{ProductID: products[1].ID, Quantity: 1, UnitPrice: products[1].Price},
		}},
		{user: users[1], status: model.OrderStatusConfirmed, items: []model.OrderItem{
			{ProductID: products[2].ID, Quantity: 1, UnitPrice: products[2].Price},
		}},
	}
	for _, so := range seedOrders {
		total := decimal.Zero
		for _, it := range so.items {
			total = total.Add(it.LineTotal())
		}
		order := &model.Order{
			UserID:      so.user.ID,
			TotalAmount: total,
			Status:      so.status,
			OrderDate:   time.Now().UTC(),
		}
		if err := st.Orders().Put(ctx, order); err != nil {
			return fmt.Errorf("seed order for %s: %w", so.user.Username, err)
		}
		for i := range so.items {
			so.items[i].OrderID = order.ID
			if err := st.OrderItems().Put(ctx, &so.items[i]); err != nil {
				return fmt.Errorf("seed order item: %w", err)
			}
		}
	}

	log.Info("seeded initial data", "users", len(users), "products", len(products), "orders", len(seedOrders))
	return nil
}
