// Package memory implements the store contract with in-process maps. It backs
// unit tests and STORE_DRIVER=memory runs. All methods are safe for concurrent
// use; a per-kind mutex linearizes writes to a single entity.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clove/commerce-core/internal/model"
	"github.com/clove/commerce-core/internal/store"
)

type Store struct {
	users    *userStore
	products *productStore
	orders   *orderStore
	items    *orderItemStore
}

func New() *Store {
	return &Store{
		users:    &userStore{data: make(map[uuid.UUID]model.User)},
		products: &productStore{data: make(map[uuid.UUID]model.Product)},
		orders:   &orderStore{data: make(map[uuid.UUID]model.Order)},
		items:    &orderItemStore{data: make(map[uuid.UUID]model.OrderItem)},
	}
}

func (s *Store) Users() store.UserStore           { return s.users }
func (s *Store) Products() store.ProductStore     { return s.products }
func (s *Store) Orders() store.OrderStore         { return s.orders }
func (s *Store) OrderItems() store.OrderItemStore { return s.items }
func (s *Store) Ping(context.Context) error       { return nil }

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// --- users ---

type userStore struct {
	mu   sync.RWMutex
	data map[uuid.UUID]model.User
}

func (s *userStore) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.data[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	u.Orders = nil
	return &u, nil
}

func (s *userStore) Put(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
		u.CreatedAt = now
	} else if _, ok := s.data[u.ID]; !ok && u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	stored := *u
	stored.Orders = nil // relations are never persisted
	s.data[u.ID] = stored
	return nil
}

func (s *userStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.data, id)
	return nil
}

func matchUser(u model.User, f store.UserFilter) bool {
	if f.Username != "" && u.Username != f.Username {
		return false
	}
	if f.Email != "" && u.Email != f.Email {
		return false
	}
	if f.FirstName != "" && u.FirstName != f.FirstName {
		return false
	}
	if f.LastNameLike != "" && !strings.Contains(strings.ToLower(u.LastName), strings.ToLower(f.LastNameLike)) {
		return false
	}
	if f.EmailDomain != "" && !strings.HasSuffix(u.Email, "@"+f.EmailDomain) {
		return false
	}
	if f.CreatedAfter != nil && !u.CreatedAt.After(*f.CreatedAfter) {
		return false
	}
	if f.HasProfile && u.ProfileData == "" {
		return false
	}
	return true
}

func (s *userStore) List(_ context.Context, f store.UserFilter, st store.Sort, limit, offset int) ([]model.User, int, error) {
	s.mu.RLock()
	matched := make([]model.User, 0)
	for _, u := range s.data {
		if matchUser(u, f) {
			u.Orders = nil
			if !f.IncludeProfile {
				u.ProfileData = ""
			}
			matched = append(matched, u)
		}
	}
	s.mu.RUnlock()

	sortUsers(matched, st)
	total := len(matched)
	return paginate(matched, limit, offset), total, nil
}

func sortUsers(users []model.User, st store.Sort) {
	desc := st.Desc || st.Field == ""
	sort.SliceStable(users, func(i, j int) bool {
		var less bool
		switch st.Field {
		case "username":
			less = users[i].Username < users[j].Username
		default:
			less = users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		if desc {
			return !less
		}
		return less
	})
}

func (s *userStore) ListByIDs(_ context.Context, ids []uuid.UUID) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.data[id]; ok {
			u.Orders = nil
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *userStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data), nil
}

// --- products ---

type productStore struct {
	mu   sync.RWMutex
	data map[uuid.UUID]model.Product
}

func (s *productStore) GetByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.data[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *productStore) Put(_ context.Context, p *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
		p.CreatedAt = now
	} else if _, ok := s.data[p.ID]; !ok && p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.data[p.ID] = *p
	return nil
}

func (s *productStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.data, id)
	return nil
}

func matchProduct(p model.Product, f store.ProductFilter) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.NameLike != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.NameLike)) {
		return false
	}
	if f.DescLike != "" && !strings.Contains(strings.ToLower(p.Description), strings.ToLower(f.DescLike)) {
		return false
	}
	if f.KeywordsLike != "" && !strings.Contains(strings.ToLower(p.SearchKeywords), strings.ToLower(f.KeywordsLike)) {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if f.InStock && p.Stock <= 0 {
		return false
	}
	if f.HasImages && p.ImageData == "" {
		return false
	}
	return true
}

func (s *productStore) List(_ context.Context, f store.ProductFilter, st store.Sort, limit, offset int) ([]model.Product, int, error) {
	s.mu.RLock()
	matched := make([]model.Product, 0)
	for _, p := range s.data {
		if matchProduct(p, f) {
			if !f.IncludeImages {
				p.ImageData = ""
			}
			matched = append(matched, p)
		}
	}
	s.mu.RUnlock()

	sortProducts(matched, st)
	total := len(matched)
	return paginate(matched, limit, offset), total, nil
}

func sortProducts(products []model.Product, st store.Sort) {
	desc := st.Desc || st.Field == ""
	sort.SliceStable(products, func(i, j int) bool {
		var less bool
		switch st.Field {
		case "name":
			less = products[i].Name < products[j].Name
		case "price":
			less = products[i].Price.LessThan(products[j].Price)
		default:
			less = products[i].CreatedAt.Before(products[j].CreatedAt)
		}
		if desc {
			return !less
		}
		return less
	})
}

func (s *productStore) ListByIDs(_ context.Context, ids []uuid.UUID) ([]model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.data[id]; ok {
			p.ImageData = ""
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *productStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data), nil
}

// --- orders ---

type orderStore struct {
	mu   sync.RWMutex
	data map[uuid.UUID]model.Order
}

func (s *orderStore) GetByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.data[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	o.Items = nil
	return &o, nil
}

func (s *orderStore) Put(_ context.Context, o *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
		o.CreatedAt = now
	} else if _, ok := s.data[o.ID]; !ok && o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	if o.OrderDate.IsZero() {
		o.OrderDate = now
	}
	o.UpdatedAt = now
	stored := *o
	stored.Items = nil
	s.data[o.ID] = stored
	return nil
}

func (s *orderStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.data, id)
	return nil
}

func matchOrder(o model.Order, f store.OrderFilter) bool {
	if f.UserID != nil && o.UserID != *f.UserID {
		return false
	}
	if f.Status != nil && o.Status != *f.Status {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, st := range f.Statuses {
			if o.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.DateFrom != nil && o.OrderDate.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && o.OrderDate.After(*f.DateTo) {
		return false
	}
	if f.MinAmount != nil && o.TotalAmount.LessThan(*f.MinAmount) {
		return false
	}
	if f.HasNotes && o.Notes == "" {
		return false
	}
	return true
}

func (s *orderStore) List(_ context.Context, f store.OrderFilter, st store.Sort, limit, offset int) ([]model.Order, int, error) {
	s.mu.RLock()
	matched := make([]model.Order, 0)
	for _, o := range s.data {
		if matchOrder(o, f) {
			o.Items = nil
			if !f.IncludeNotes {
				o.Notes = ""
			}
			matched = append(matched, o)
		}
	}
	s.mu.RUnlock()

	sortOrders(matched, st)
	total := len(matched)
	return paginate(matched, limit, offset), total, nil
}

func sortOrders(orders []model.Order, st store.Sort) {
	desc := st.Desc || st.Field == ""
	sort.SliceStable(orders, func(i, j int) bool {
		var less bool
		switch st.Field {
		case "order_date":
			less = orders[i].OrderDate.Before(orders[j].OrderDate)
		case "total_amount":
			less = orders[i].TotalAmount.LessThan(orders[j].TotalAmount)
		default:
			less = orders[i].CreatedAt.Before(orders[j].CreatedAt)
		}
		if desc {
			return !less
		}
		return less
	})
}

func (s *orderStore) ListByUserIDs(_ context.Context, userIDs []uuid.UUID) ([]model.Order, error) {
	want := make(map[uuid.UUID]struct{}, len(userIDs))
	for _, id := range userIDs {
		want[id] = struct{}{}
	}
	s.mu.RLock()
	out := make([]model.Order, 0)
	for _, o := range s.data {
		if _, ok := want[o.UserID]; ok {
			o.Items = nil
			out = append(out, o)
		}
	}
	s.mu.RUnlock()
	sortOrders(out, store.Sort{Field: "order_date", Desc: true})
	return out, nil
}

func (s *orderStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data), nil
}

// --- order items ---

type orderItemStore struct {
	mu   sync.RWMutex
	data map[uuid.UUID]model.OrderItem
}

func (s *orderItemStore) GetByID(_ context.Context, id uuid.UUID) (*model.OrderItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.data[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	it.Product = nil
	return &it, nil
}

func (s *orderItemStore) Put(_ context.Context, it *model.OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
		it.CreatedAt = time.Now().UTC()
	}
	stored := *it
	stored.Product = nil
	s.data[it.ID] = stored
	return nil
}

func (s *orderItemStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.data, id)
	return nil
}

func (s *orderItemStore) ListByOrderIDs(_ context.Context, orderIDs []uuid.UUID) ([]model.OrderItem, error) {
	want := make(map[uuid.UUID]struct{}, len(orderIDs))
	for _, id := range orderIDs {
		want[id] = struct{}{}
	}
	s.mu.RLock()
	out := make([]model.OrderItem, 0)
	for _, it := range s.data {
		if _, ok := want[it.OrderID]; ok {
			it.Product = nil
			out = append(out, it)
		}
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *orderItemStore) DeleteByOrderID(_ context.Context, orderID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, it := range s.data {
		if it.OrderID == orderID {
			delete(s.data, id)
		}
	}
	return nil
}

func (s *orderItemStore) CountByProductID(_ context.Context, productID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, it := range s.data {
		if it.ProductID == productID {
			n++
		}
	}
	return n, nil
}
