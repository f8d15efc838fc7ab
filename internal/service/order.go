package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clove/commerce-core/internal/async"
	"github.com/clove/commerce-core/internal/cache"
	"github.com/clove/commerce-core/internal/dto"
	"github.com/clove/commerce-core/internal/events"
	"github.com/clove/commerce-core/internal/model"
	"github.com/clove/commerce-core/internal/resolver"
	"github.com/clove/commerce-core/internal/store"
)

type OrderService struct {
	store  store.Store
	res    *resolver.Resolver
	cache  cache.Cache
	exec   *async.Executor
	events events.Publisher
	log    *slog.Logger
}

func NewOrderService(st store.Store, res *resolver.Resolver, c cache.Cache, exec *async.Executor, pub events.Publisher, log *slog.Logger) *OrderService {
	if pub == nil {
		pub = events.NewNop()
	}
	return &OrderService{store: st, res: res, cache: c, exec: exec, events: pub, log: log}
}

func (s *OrderService) Create(ctx context.Context, req dto.CreateOrderRequest) (*dto.OrderResponse, error) {
	return s.create(ctx, req, "")
}

// CreateWithNotes is the only create path that materializes the notes blob.
func (s *OrderService) CreateWithNotes(ctx context.Context, req dto.CreateOrderWithNotesRequest) (*dto.OrderResponse, error) {
	return s.create(ctx, req.CreateOrderRequest, req.Notes)
}

// create persists the order first, then its items, because items need the
// generated order identifier. Unit prices are snapshots of the product price
// at order time; the total is the exact decimal sum of line totals. If item
// persistence fails after the order committed, the error identifies which
// items were written.
func (s *OrderService) create(ctx context.Context, req dto.CreateOrderRequest, notes string) (*dto.OrderResponse, error) {
	if len(req.Items) == 0 {
		return nil, validationErr("items", "order requires at least one item")
	}
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return nil, validationErr("quantity", "must be greater than zero")
		}
	}

	if _, err := s.store.Users().GetByID(ctx, req.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	products, err := s.loadProducts(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	items := make([]model.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		p := products[it.ProductID]
		item := model.OrderItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: p.Price,
		}
		total = total.Add(item.LineTotal())
		items = append(items, item)
	}

	order := &model.Order{
		UserID:      req.UserID,
		TotalAmount: total,
		Status:      model.OrderStatusPending,
		OrderDate:   time.Now().UTC(),
		Notes:       notes,
	}
	if err := s.store.Orders().Put(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	// The order row is committed from here on, so cached order queries are
	// stale even when item persistence fails partway.
	defer invalidate(ctx, s.cache, store.KindOrder)

	if err := s.putItems(ctx, order.ID, items); err != nil {
		return nil, err
	}
	order.Items = items

	if err := s.events.OrderCreated(ctx, model.OrderEvent{OrderID: order.ID, UserID: order.UserID}); err != nil {
		s.log.Warn("publish order created", "order_id", order.ID, "error", err)
	}

	resp := toOrderResponse(order)
	return &resp, nil
}

// loadProducts batch-loads every distinct referenced product in one query.
func (s *OrderService) loadProducts(ctx context.Context, items []dto.OrderItemPayload) (map[uuid.UUID]model.Product, error) {
	seen := make(map[uuid.UUID]struct{}, len(items))
	var ids []uuid.UUID
	for _, it := range items {
		if _, ok := seen[it.ProductID]; !ok {
			seen[it.ProductID] = struct{}{}
			ids = append(ids, it.ProductID)
		}
	}

	products, err := s.store.Products().ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	byID := make(map[uuid.UUID]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, validationErr("product_id", fmt.Sprintf("product %s does not exist", id))
		}
	}
	return byID, nil
}

func (s *OrderService) putItems(ctx context.Context, orderID uuid.UUID, items []model.OrderItem) error {
	for i := range items {
		items[i].OrderID = orderID
		if err := s.store.OrderItems().Put(ctx, &items[i]); err != nil {
			pf := &PartialFailureError{OrderID: orderID, Err: err}
			for j := 0; j < i; j++ {
				pf.Persisted = append(pf.Persisted, items[j].ID)
			}
			for j := i; j < len(items); j++ {
				pf.Failed = append(pf.Failed, items[j].ProductID)
			}
			return pf
		}
	}
	return nil
}

func (s *OrderService) GetByID(ctx context.Context, id uuid.UUID, inc resolver.Include) (*dto.OrderResponse, error) {
	order, err := s.store.Orders().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if inc.Items || inc.ItemProducts {
		orders := []model.Order{*order}
		if err := s.res.ResolveOrders(ctx, orders, inc); err != nil {
			return nil, err
		}
		order = &orders[0]
	}

	resp := toOrderResponse(order)
	return &resp, nil
}

func (s *OrderService) List(ctx context.Context, page dto.PageRequest) (*dto.OrderListResponse, error) {
	key := cache.Key(store.KindOrder, "list",
		strconv.Itoa(page.Page), strconv.Itoa(page.PageSize), page.Sort, page.Order)
	return cachedQuery(ctx, s.cache, key, func() (*dto.OrderListResponse, error) {
		return s.list(ctx, store.OrderFilter{}, page)
	})
}

func (s *OrderService) list(ctx context.Context, f store.OrderFilter, page dto.PageRequest) (*dto.OrderListResponse, error) {
	orders, total, err := s.store.Orders().List(ctx, f, sortFrom(page), page.PageSize, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	resp := &dto.OrderListResponse{Total: total, Page: page.Page, PageSize: page.PageSize}
	for i := range orders {
		resp.Orders = append(resp.Orders, toOrderResponse(&orders[i]))
	}
	return resp, nil
}

// Update mutates only the supplied fields. Supplying items replaces the whole
// item set: prices are re-snapshotted and the total recomputed so it always
// equals the sum of the persisted items' line totals.
func (s *OrderService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateOrderRequest) (*dto.OrderResponse, error) {
	order, err := s.store.Orders().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if req.Status != nil {
		if !model.ValidOrderStatus(*req.Status) {
			return nil, validationErr("status", fmt.Sprintf("unknown status %q", *req.Status))
		}
		order.Status = *req.Status
	}
	if req.OrderDate != nil {
		order.OrderDate = *req.OrderDate
	}
	if req.Notes != nil {
		order.Notes = *req.Notes
	}

	var newItems []model.OrderItem
	if req.Items != nil {
		if len(*req.Items) == 0 {
			return nil, validationErr("items", "order requires at least one item")
		}
		for _, it := range *req.Items {
			if it.Quantity <= 0 {
				return nil, validationErr("quantity", "must be greater than zero")
			}
		}
		products, err := s.loadProducts(ctx, *req.Items)
		if err != nil {
			return nil, err
		}
		total := decimal.Zero
		for _, it := range *req.Items {
			item := model.OrderItem{
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				UnitPrice: products[it.ProductID].Price,
			}
			total = total.Add(item.LineTotal())
			newItems = append(newItems, item)
		}
		order.TotalAmount = total
	}

	if err := s.store.Orders().Put(ctx, order); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	defer invalidate(ctx, s.cache, store.KindOrder)
	if req.Items != nil {
		if err := s.store.OrderItems().DeleteByOrderID(ctx, id); err != nil {
			return nil, fmt.Errorf("replace order items: %w", err)
		}
		if err := s.putItems(ctx, id, newItems); err != nil {
			return nil, err
		}
		order.Items = newItems
	}

	resp := toOrderResponse(order)
	return &resp, nil
}

// Delete cascades to the order's items: items are composition-owned and are
// removed before the order row.
func (s *OrderService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.store.Orders().GetByID(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("get order: %w", err)
	}

	if err := s.store.OrderItems().DeleteByOrderID(ctx, id); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}
	if err := s.store.Orders().Delete(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("delete order: %w", err)
	}
	invalidate(ctx, s.cache, store.KindOrder)
	return nil
}

func (s *OrderService) ByUser(ctx context.Context, userID uuid.UUID, page dto.PageRequest) (*dto.OrderListResponse, error) {
	key := cache.Key(store.KindOrder, "by_user", userID.String(),
		strconv.Itoa(page.Page), strconv.Itoa(page.PageSize))
	return cachedQuery(ctx, s.cache, key, func() (*dto.OrderListResponse, error) {
		return s.list(ctx, store.OrderFilter{UserID: &userID}, page)
	})
}

func (s *OrderService) ByStatus(ctx context.Context, status model.OrderStatus, page dto.PageRequest) (*dto.OrderListResponse, error) {
	if !model.ValidOrderStatus(status) {
		return nil, validationErr("status", fmt.Sprintf("unknown status %q", status))
	}
	key := cache.Key(store.KindOrder, "by_status", string(status),
		strconv.Itoa(page.Page), strconv.Itoa(page.PageSize))
	return cachedQuery(ctx, s.cache, key, func() (*dto.OrderListResponse, error) {
		return s.list(ctx, store.OrderFilter{Status: &status}, page)
	})
}

func (s *OrderService) ByDateRange(ctx context.Context, from, to time.Time, page dto.PageRequest) (*dto.OrderListResponse, error) {
	if from.After(to) {
		return nil, validationErr("date_range", "start exceeds end")
	}
	key := cache.Key(store.KindOrder, "date_range",
		from.Format(time.RFC3339), to.Format(time.RFC3339),
		strconv.Itoa(page.Page), strconv.Itoa(page.PageSize))
	return cachedQuery(ctx, s.cache, key, func() (*dto.OrderListResponse, error) {
		return s.list(ctx, store.OrderFilter{DateFrom: &from, DateTo: &to}, page)
	})
}

func (s *OrderService) ByMinAmount(ctx context.Context, min decimal.Decimal, page dto.PageRequest) (*dto.OrderListResponse, error) {
	key := cache.Key(store.KindOrder, "min_amount", min.String(),
		strconv.Itoa(page.Page), strconv.Itoa(page.PageSize))
	return cachedQuery(ctx, s.cache, key, func() (*dto.OrderListResponse, error) {
		return s.list(ctx, store.OrderFilter{MinAmount: &min}, page)
	})
}

func (s *OrderService) WithNotes(ctx context.Context, page dto.PageRequest) (*dto.OrderListResponse, error) {
	key := cache.Key(store.KindOrder, "with_notes",
		strconv.Itoa(page.Page), strconv.Itoa(page.PageSize))
	return cachedQuery(ctx, s.cache, key, func() (*dto.OrderListResponse, error) {
		return s.list(ctx, store.OrderFilter{HasNotes: true, IncludeNotes: true}, page)
	})
}

// Active lists orders still in flight (pending, confirmed or shipped).
func (s *OrderService) Active(ctx context.Context, page dto.PageRequest) (*dto.OrderListResponse, error) {
	f := store.OrderFilter{Statuses: []model.OrderStatus{
		model.OrderStatusPending, model.OrderStatusConfirmed, model.OrderStatusShipped,
	}}
	key := cache.Key(store.KindOrder, "active",
		strconv.Itoa(page.Page), strconv.Itoa(page.PageSize))
	return cachedQuery(ctx, s.cache, key, func() (*dto.OrderListResponse, error) {
		return s.list(ctx, f, page)
	})
}

// AllAsync submits a bulk read of every order, aggregating the grand total in
// one O(items) pass.
func (s *OrderService) AllAsync(ctx context.Context) (*async.Handle[dto.OrdersBulkResponse], error) {
	return async.Submit(s.exec, ctx, func(ctx context.Context) (dto.OrdersBulkResponse, error) {
		resp := dto.OrdersBulkResponse{TotalAmount: decimal.Zero}
		for offset := 0; ; offset += bulkPageSize {
			if err := ctx.Err(); err != nil {
				return resp, err
			}
			orders, total, err := s.store.Orders().List(ctx, store.OrderFilter{}, store.Sort{}, bulkPageSize, offset)
			if err != nil {
				return resp, fmt.Errorf("bulk list orders: %w", err)
			}
			for i := range orders {
				resp.Orders = append(resp.Orders, toOrderResponse(&orders[i]))
				resp.TotalAmount = resp.TotalAmount.Add(orders[i].TotalAmount)
			}
			if offset+len(orders) >= total || len(orders) == 0 {
				break
			}
		}
		resp.Count = len(resp.Orders)
		s.log.Info("bulk order read complete", "count", resp.Count)
		return resp, nil
	})
}
