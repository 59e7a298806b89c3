package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newMiniRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(context.Background(), RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStoreSetGetDelete(t *testing.T) {
	store, mr := newMiniRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "greeting", []byte("hello"), time.Minute))
	require.True(t, mr.Exists("lifeadmin:greeting"))

	value, ok, err := store.Get(ctx, "greeting")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("hello"), value)

	require.NoError(t, store.Delete(ctx, "greeting", "missing"))
	_, ok, err = store.Get(ctx, "greeting")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(ctx, "short", []byte("x"), time.Second))
	mr.FastForward(2 * time.Second)
	_, ok, err = store.Get(ctx, "short")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisStoreIncrementWithTTL(t *testing.T) {
	store, mr := newMiniRedisStore(t)
	ctx := context.Background()

	count, ttl, err := store.IncrementWithTTL(ctx, "rate::trigger", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Equal(t, time.Minute, ttl)
	require.True(t, mr.Exists("lifeadmin:rate:trigger"), "repeated colons are collapsed")

	count, _, err = store.IncrementWithTTL(ctx, "rate::trigger", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	mr.FastForward(2 * time.Minute)
	count, _, err = store.IncrementWithTTL(ctx, "rate::trigger", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestRedisStoreConditionalOperations(t *testing.T) {
	store, mr := newMiniRedisStore(t)
	ctx := context.Background()

	ok, err := store.SetIfAbsent(ctx, "lock:sweep", []byte("owner-a"), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.SetIfAbsent(ctx, "lock:sweep", []byte("owner-b"), time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	deleted, err := store.DeleteIfValue(ctx, "lock:sweep", []byte("owner-b"))
	require.NoError(t, err)
	require.False(t, deleted)

	deleted, err = store.DeleteIfValue(ctx, "lock:sweep", []byte("owner-a"))
	require.NoError(t, err)
	require.True(t, deleted)
	require.False(t, mr.Exists("lifeadmin:lock:sweep"))

	ok, err = store.SetIfAbsent(ctx, "lock:sweep", []byte("owner-b"), time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	mr.FastForward(2 * time.Second)
	ok, err = store.SetIfAbsent(ctx, "lock:sweep", []byte("owner-c"), time.Second)
	require.NoError(t, err)
	require.True(t, ok, "expired locks can be taken over")
}

func TestRedisStorePingFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	require.NoError(t, store.Ping(context.Background()))

	mr.SetError("LOADING redis is loading the dataset")
	require.Error(t, store.Ping(context.Background()))
	mr.SetError("")
	require.NoError(t, store.Close())
}

func TestNewRedisStoreValidation(t *testing.T) {
	_, err := NewRedisStore(context.Background(), RedisConfig{})
	require.Error(t, err)
}

func TestRedisStoreCustomKeyPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(context.Background(), RedisConfig{Address: mr.Addr(), KeyPrefix: " household: "})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "rate:trigger", []byte("1"), time.Minute))
	require.True(t, mr.Exists("household:rate:trigger"))
	require.False(t, mr.Exists("lifeadmin:rate:trigger"))

	ok, err := store.SetIfAbsent(ctx, "household:lock", []byte("a"), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, mr.Exists("household:lock"), "already prefixed keys are not prefixed twice")
}
