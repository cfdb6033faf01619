package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SetGetDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k1", []byte("v1"), time.Minute))

	value, found, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("v1"), value)

	require.NoError(t, store.Delete(ctx, "k1"))

	_, found, err = store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStore_ExpiredItemIsMissing(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k1", []byte("v1"), -time.Second))

	_, found, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, found)
}
