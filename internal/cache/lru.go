package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/clove/commerce-core/internal/store"
)

type lruEntry struct {
	key      string
	value    []byte
	storedAt time.Time
}

// LRU is an in-process cache bounded by entry count and entry age. Lookups
// never block on I/O. The zero capacity is rejected by the constructor; the
// cache can never grow past it.
type LRU struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List // front = most recently used
	entries  map[string]*list.Element

	now func() time.Time // test hook
}

func NewLRU(capacity int, ttl time.Duration) *LRU {
	if capacity <= 0 {
		capacity = 1
	}
	return &LRU{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
		now:      time.Now,
	}
}

func (c *LRU) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	ent := el.Value.(*lruEntry)
	if c.ttl > 0 && c.now().Sub(ent.storedAt) > c.ttl {
		c.remove(el)
		return nil, false
	}
	c.order.MoveToFront(el)
	return ent.value, true
}

func (c *LRU) Set(_ context.Context, key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		ent := el.Value.(*lruEntry)
		ent.value = value
		ent.storedAt = c.now()
		c.order.MoveToFront(el)
		return
	}
	el := c.order.PushFront(&lruEntry{key: key, value: value, storedAt: c.now()})
	c.entries[key] = el
	for c.order.Len() > c.capacity {
		c.remove(c.order.Back())
	}
}

func (c *LRU) InvalidateKind(_ context.Context, kind store.Kind) {
	prefix := string(kind) + ":"
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, el := range c.entries {
		if strings.HasPrefix(key, prefix) {
			c.remove(el)
		}
	}
}

// Len reports the current entry count.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *LRU) remove(el *list.Element) {
	if el == nil {
		return
	}
	c.order.Remove(el)
	delete(c.entries, el.Value.(*lruEntry).key)
}
