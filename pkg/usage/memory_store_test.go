package usage_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearclaim/backend/pkg/usage"
)

func TestMemoryStore_Used(t *testing.T) {
	t.Parallel()

	store := usage.NewMemoryStore()
	userID := uuid.New()
	day := usage.Day("2026-08-31")

	used, err := store.Used(context.Background(), userID, day)
	require.NoError(t, err)
	assert.Equal(t, int64(0), used, "missing counter reads as zero")

	_, err = store.Increment(context.Background(), userID, day, 2)
	require.NoError(t, err)

	used, err = store.Used(context.Background(), userID, day)
	require.NoError(t, err)
	assert.Equal(t, int64(2), used)

	used, err = store.Used(context.Background(), userID, usage.Day("2026-09-01"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), used, "days are independent counters")
}

func TestMemoryStore_ConcurrentIncrement(t *testing.T) {
	t.Parallel()

	store := usage.NewMemoryStore()
	userID := uuid.New()
	day := usage.Day("2026-08-31")

	const goroutines = 64
	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Increment(context.Background(), userID, day, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	used, err := store.Used(context.Background(), userID, day)
	require.NoError(t, err)
	assert.Equal(t, int64(goroutines), used)

	counters, err := store.ForDate(context.Background(), day, 100)
	require.NoError(t, err)
	require.Len(t, counters, 1, "concurrent first touches collapse onto one row")
	assert.Equal(t, int64(goroutines), counters[0].Used)
}

func TestMemoryStore_TryConsume(t *testing.T) {
	t.Parallel()

	store := usage.NewMemoryStore()
	userID := uuid.New()
	day := usage.Day("2026-08-31")

	used, ok, err := store.TryConsume(context.Background(), userID, day, 3, 5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(3), used)

	used, ok, err = store.TryConsume(context.Background(), userID, day, 3, 5)
	require.NoError(t, err)
	assert.False(t, ok, "3+3 exceeds limit 5")
	assert.Equal(t, int64(3), used)

	used, ok, err = store.TryConsume(context.Background(), userID, day, 2, 5)
	require.NoError(t, err)
	assert.True(t, ok, "exact fit up to the limit is allowed")
	assert.Equal(t, int64(5), used)
}

func TestMemoryStore_ForDate(t *testing.T) {
	t.Parallel()

	store := usage.NewMemoryStore()
	day := usage.Day("2026-08-31")

	low, mid, high := uuid.New(), uuid.New(), uuid.New()
	_, err := store.Increment(context.Background(), low, day, 1)
	require.NoError(t, err)
	_, err = store.Increment(context.Background(), high, day, 9)
	require.NoError(t, err)
	_, err = store.Increment(context.Background(), mid, day, 5)
	require.NoError(t, err)

	counters, err := store.ForDate(context.Background(), day, 10)
	require.NoError(t, err)
	require.Len(t, counters, 3)
	assert.Equal(t, high, counters[0].UserID)
	assert.Equal(t, mid, counters[1].UserID)
	assert.Equal(t, low, counters[2].UserID)

	capped, err := store.ForDate(context.Background(), day, 2)
	require.NoError(t, err)
	require.Len(t, capped, 2)
	assert.Equal(t, high, capped[0].UserID)
}

func TestMemoryStore_Range(t *testing.T) {
	t.Parallel()

	store := usage.NewMemoryStore()
	userID := uuid.New()

	_, err := store.Increment(context.Background(), userID, usage.Day("2026-08-29"), 4)
	require.NoError(t, err)
	_, err = store.Increment(context.Background(), userID, usage.Day("2026-08-31"), 7)
	require.NoError(t, err)
	_, err = store.Increment(context.Background(), userID, usage.Day("2026-09-02"), 1)
	require.NoError(t, err)
	_, err = store.Increment(context.Background(), uuid.New(), usage.Day("2026-08-31"), 99)
	require.NoError(t, err)

	got, err := store.Range(context.Background(), userID, usage.Day("2026-08-29"), usage.Day("2026-09-01"))
	require.NoError(t, err)
	assert.Equal(t, map[usage.Day]int64{
		"2026-08-29": 4,
		"2026-08-31": 7,
	}, got, "range is inclusive and scoped to the user")
}
