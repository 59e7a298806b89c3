package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/lifeadmin/internal/database/testutil"
)

func newDatabaseStore(t *testing.T) (*DatabaseStore, *time.Time) {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	return store, &now
}

func TestDatabaseStoreSetGetDelete(t *testing.T) {
	store, now := newDatabaseStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "key", []byte("one"), time.Minute))
	require.NoError(t, store.Set(ctx, "key", []byte("two"), time.Minute))

	value, ok, err := store.Get(ctx, "key")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("two"), value)

	*now = now.Add(2 * time.Minute)
	_, ok, err = store.Get(ctx, "key")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(ctx, "forever", []byte("x"), 0))
	*now = now.Add(24 * time.Hour)
	_, ok, err = store.Get(ctx, "forever")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.Delete(ctx, "forever"))
	_, ok, err = store.Get(ctx, "forever")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDatabaseStoreIncrementWithTTL(t *testing.T) {
	store, now := newDatabaseStore(t)
	ctx := context.Background()

	count, ttl, err := store.IncrementWithTTL(ctx, "hits", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Equal(t, time.Minute, ttl)

	*now = now.Add(10 * time.Second)
	count, ttl, err = store.IncrementWithTTL(ctx, "hits", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
	require.Equal(t, 50*time.Second, ttl, "the window is not extended by later hits")

	*now = now.Add(time.Minute)
	count, _, err = store.IncrementWithTTL(ctx, "hits", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestDatabaseStoreConditionalOperations(t *testing.T) {
	store, now := newDatabaseStore(t)
	ctx := context.Background()

	ok, err := store.SetIfAbsent(ctx, "lock", []byte("a"), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.SetIfAbsent(ctx, "lock", []byte("b"), time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	deleted, err := store.DeleteIfValue(ctx, "lock", []byte("b"))
	require.NoError(t, err)
	require.False(t, deleted)

	*now = now.Add(2 * time.Minute)
	ok, err = store.SetIfAbsent(ctx, "lock", []byte("b"), time.Minute)
	require.NoError(t, err)
	require.True(t, ok, "expired entries are replaced")

	deleted, err = store.DeleteIfValue(ctx, "lock", []byte("b"))
	require.NoError(t, err)
	require.True(t, deleted)

	deleted, err = store.DeleteIfValue(ctx, "lock", []byte("b"))
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestNilDatabaseStore(t *testing.T) {
	require.Nil(t, NewDatabaseStore(nil))

	var store *DatabaseStore
	_, _, err := store.Get(context.Background(), "x")
	require.Error(t, err)
}

func TestDatabaseStoreDeleteMany(t *testing.T) {
	store, _ := newDatabaseStore(t)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, store.Set(ctx, key, []byte(key), time.Minute))
	}
	require.NoError(t, store.Delete(ctx, "a", "c", "missing"))

	for key, want := range map[string]bool{"a": false, "b": true, "c": false} {
		_, ok, err := store.Get(ctx, key)
		require.NoError(t, err)
		require.Equal(t, want, ok, key)
	}
}
