package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client, time.Second, zap.NewNop())
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStore_SetGetDelete(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k1", []byte("payload"), time.Minute))

	value, found, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("payload"), value)

	require.NoError(t, store.Delete(ctx, "k1"))

	_, found, err = store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisStore_WithClientDefaultsTimeout(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client, 0, zap.NewNop())
	t.Cleanup(func() { _ = store.Close() })

	assert.Equal(t, 3*time.Second, store.timeout)
	require.NoError(t, store.Set(context.Background(), "k", []byte("v"), time.Minute))
	_, found, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestRedisStore_MissingKeyIsNotAnError(t *testing.T) {
	store, _ := newTestRedisStore(t)

	value, found, err := store.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, value)
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", []byte("x"), 30*time.Second))
	mr.FastForward(time.Minute)

	_, found, err := store.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisStore_DeleteMissingKey(t *testing.T) {
	store, _ := newTestRedisStore(t)

	assert.NoError(t, store.Delete(context.Background(), "never-set"))
}

func TestRedisStore_BackendOutageReturnsError(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k1", []byte("v"), time.Minute))
	mr.Close()

	_, _, err := store.Get(ctx, "k1")
	assert.Error(t, err)

	assert.Error(t, store.Set(ctx, "k2", []byte("v"), time.Minute))
}

func TestRedisStore_Ping(t *testing.T) {
	store, mr := newTestRedisStore(t)

	require.NoError(t, store.Ping(context.Background()))

	mr.Close()
	assert.Error(t, store.Ping(context.Background()))
}
