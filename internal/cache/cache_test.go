package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bighogz/insider-signal/internal/models"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "quotes.db"), time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGet(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "AAA")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, models.Quote{Ticker: "aaa", MarketCap: models.Ptr(5e8), CurrentPrice: nil}))
	q, ok, err := s.Get(ctx, " AAA ")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "AAA", q.Ticker)
	assert.Equal(t, 5e8, *q.MarketCap)
	assert.Nil(t, q.CurrentPrice)

	require.NoError(t, s.Put(ctx, models.Quote{Ticker: "AAA", CurrentPrice: models.Ptr(4.2)}))
	q, ok, err = s.Get(ctx, "AAA")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, q.MarketCap)
	assert.Equal(t, 4.2, *q.CurrentPrice)
}

func TestExpiry(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	require.NoError(t, s.Put(ctx, models.Quote{Ticker: "OLD", CurrentPrice: models.Ptr(1.0)}))

	s.now = func() time.Time { return base.Add(30 * time.Minute) }
	require.NoError(t, s.Put(ctx, models.Quote{Ticker: "NEW", CurrentPrice: models.Ptr(2.0)}))

	s.now = func() time.Time { return base.Add(61 * time.Minute) }
	_, ok, err := s.Get(ctx, "OLD")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = s.Get(ctx, "NEW")
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := s.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
