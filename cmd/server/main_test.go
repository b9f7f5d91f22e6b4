package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stocksentiment/internal/cache"
	"stocksentiment/internal/stock"
)

func TestStartSweeper(t *testing.T) {
	t.Parallel()

	store := cache.NewMemory(10, cache.WithTTL(time.Minute))

	c, err := startSweeper("@every 1m", store, nil, nil)
	require.NoError(t, err)
	require.Len(t, c.Entries(), 1)
	c.Stop()

	c, err = startSweeper("", store, nil, nil)
	require.NoError(t, err)
	require.Empty(t, c.Entries())

	c, err = startSweeper("@every 1m", nil, nil, nil)
	require.NoError(t, err)
	require.Empty(t, c.Entries())

	_, err = startSweeper("not a spec", store, nil, nil)
	require.ErrorContains(t, err, `cache sweep spec "not a spec"`)
}

func TestCacheLocation(t *testing.T) {
	t.Parallel()

	require.Equal(t, "disabled", cacheLocation(nil))
	store := cache.NewMemory(1)
	store.Set("AAPL", stock.StockResult{Symbol: "AAPL"})
	require.Equal(t, "memory", cacheLocation(store))
}
