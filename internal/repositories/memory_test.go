package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Soulfra/soulfra-sub002/internal/models"
)

func TestMemoryStatsCache_TTL(t *testing.T) {
	cache := NewMemoryStatsCache(50 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, &models.ScanStats{CodeID: "code-1", TotalScans: 3}))

	retrieved, err := cache.Get(ctx, "code-1")
	require.NoError(t, err)
	assert.Equal(t, 3, retrieved.TotalScans)

	time.Sleep(100 * time.Millisecond)

	_, err = cache.Get(ctx, "code-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStatsCache_ZeroTTLNeverExpires(t *testing.T) {
	cache := NewMemoryStatsCache(0)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, &models.ScanStats{CodeID: "code-1"}))

	time.Sleep(10 * time.Millisecond)

	_, err := cache.Get(ctx, "code-1")
	assert.NoError(t, err)
}
