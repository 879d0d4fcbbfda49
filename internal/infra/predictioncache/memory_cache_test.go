package predictioncache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/urbansims/microgreens/internal/domain/cultivation"
)

func TestMemoryCache_ExpiryAndInvalidate(t *testing.T) {
	cache := NewMemoryCache()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	prediction := cultivation.Prediction{PredictedYield: 540, BaseYield: 600, Status: cultivation.YieldGood}
	require.NoError(t, cache.Set(ctx, 1, prediction, time.Minute))
	require.NoError(t, cache.Set(ctx, 2, prediction, 0))

	got, ok, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, prediction, got)

	now = now.Add(2 * time.Minute)
	_, ok, err = cache.Get(ctx, 1)
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, _ = cache.Get(ctx, 2)
	require.True(t, ok)
	require.NoError(t, cache.Invalidate(ctx, 2))
	_, ok, _ = cache.Get(ctx, 2)
	require.False(t, ok)
}
