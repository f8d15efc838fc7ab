package seed

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clove/commerce-core/internal/store"
	"github.com/clove/commerce-core/internal/store/memory"
)

func TestRun(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	require.NoError(t, Run(ctx, st, log))

	users, err := st.Users().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, users)

	products, err := st.Products().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, products)

	orders, _, err := st.Orders().List(ctx, store.OrderFilter{}, store.Sort{}, 0, 0)
	require.NoError(t, err)
	require.Len(t, orders, 2)

	// Every seeded total equals the sum of its items' line totals.
	for _, o := range orders {
		items, err := st.OrderItems().ListByOrderIDs(ctx, []uuid.UUID{o.ID})
		require.NoError(t, err)
		require.NotEmpty(t, items)
		sum := decimal.Zero
		for _, it := range items {
			sum = sum.Add(it.LineTotal())
		}
		assert.True(t, o.TotalAmount.Equal(sum), "order %s total = %s, items sum = %s", o.ID, o.TotalAmount, sum)
	}
}

func TestRun_SkipsNonEmptyStore(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	require.NoError(t, Run(ctx, st, log))
	require.NoError(t, Run(ctx, st, log))

	users, err := st.Users().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, users)
}
