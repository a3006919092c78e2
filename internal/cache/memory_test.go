package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreIncrementWindows(t *testing.T) {
	current := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	store := newMemoryStoreWithClock(func() time.Time { return current })
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		count, ttl, err := store.IncrementWithTTL(ctx, "rule|1.2.3.4", time.Minute)
		require.NoError(t, err)
		require.Equal(t, i, count)
		require.Greater(t, ttl, time.Duration(0))
	}

	// Window expiry resets the counter.
	current = current.Add(2 * time.Minute)
	count, _, err := store.IncrementWithTTL(ctx, "rule|1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestMemoryStoreSetGetDelete(t *testing.T) {
	current := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	store := newMemoryStoreWithClock(func() time.Time { return current })
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))

	value, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), value)

	// expired entries are invisible
	current = current.Add(2 * time.Minute)
	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(ctx, "k2", []byte("v2"), time.Minute))
	require.NoError(t, store.Delete(ctx, "k2"))
	_, ok, err = store.Get(ctx, "k2")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryStoreSeparateKeys(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	a, _, err := store.IncrementWithTTL(ctx, "a", time.Minute)
	require.NoError(t, err)
	b, _, err := store.IncrementWithTTL(ctx, "b", time.Minute)
	require.NoError(t, err)

	require.EqualValues(t, 1, a)
	require.EqualValues(t, 1, b)
}
