package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clove/commerce-core/internal/store"
)

func TestLRU_GetSet(t *testing.T) {
	c := NewLRU(4, time.Minute)
	ctx := context.Background()

	_, ok := c.Get(ctx, "user:list:1")
	assert.False(t, ok)

	c.Set(ctx, "user:list:1", []byte("a"))
	got, ok := c.Get(ctx, "user:list:1")
	require.True(t, ok)
	assert.Equal(t, []byte("a"), got)
}

func TestLRU_CapacityBound(t *testing.T) {
	c := NewLRU(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		c.Set(ctx, fmt.Sprintf("product:list:%d", i), []byte("x"))
	}
	assert.Equal(t, 3, c.Len())

	// Oldest entries are gone, newest survive.
	_, ok := c.Get(ctx, "product:list:0")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "product:list:9")
	assert.True(t, ok)
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU(2, time.Minute)
	ctx := context.Background()

	c.Set(ctx, "order:a", []byte("a"))
	c.Set(ctx, "order:b", []byte("b"))

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := c.Get(ctx, "order:a")
	require.True(t, ok)

	c.Set(ctx, "order:c", []byte("c"))

	_, ok = c.Get(ctx, "order:a")
	assert.True(t, ok)
	_, ok = c.Get(ctx, "order:b")
	assert.False(t, ok)
}

func TestLRU_TTLExpiry(t *testing.T) {
	c := NewLRU(4, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	c.Set(ctx, "user:list:1", []byte("a"))

	now = now.Add(30 * time.Second)
	_, ok := c.Get(ctx, "user:list:1")
	assert.True(t, ok)

	now = now.Add(31 * time.Second)
	_, ok = c.Get(ctx, "user:list:1")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestLRU_InvalidateKind(t *testing.T) {
	c := NewLRU(8, time.Minute)
	ctx := context.Background()

	c.Set(ctx, Key(store.KindUser, "list", "1"), []byte("u"))
	c.Set(ctx, Key(store.KindProduct, "list", "1"), []byte("p"))
	c.Set(ctx, Key(store.KindOrder, "active", "1"), []byte("o"))

	c.InvalidateKind(ctx, store.KindUser)

	_, ok := c.Get(ctx, Key(store.KindUser, "list", "1"))
	assert.False(t, ok)
	_, ok = c.Get(ctx, Key(store.KindProduct, "list", "1"))
	assert.True(t, ok)
	_, ok = c.Get(ctx, Key(store.KindOrder, "active", "1"))
	assert.True(t, ok)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "user:list:2:20", Key(store.KindUser, "list", "2", "20"))
}
