package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/tableside/internal/config"
)

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(time.Minute)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 0))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	now = now.Add(time.Minute)
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Hour))
	require.NoError(t, store.Delete(ctx, "k"))

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Error(t, store.Set(ctx, "", []byte("v"), 0))
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)

	type payload struct {
		ID    string `json:"id"`
		Count int    `json:"count"`
	}
	require.NoError(t, SetJSON(ctx, store, "p", payload{ID: "a", Count: 2}, 0))

	var got payload
	require.NoError(t, GetJSON(ctx, store, "p", &got))
	assert.Equal(t, payload{ID: "a", Count: 2}, got)

	assert.ErrorIs(t, GetJSON(ctx, store, "missing", &got), ErrCacheMiss)
}

func TestNewStoreDrivers(t *testing.T) {
	logger := zap.NewNop()

	store, err := NewStore(config.Config{Cache: config.Cache{Driver: "noop"}}, nil, logger)
	require.NoError(t, err)
	_, err = store.Get(context.Background(), "x")
	assert.ErrorIs(t, err, ErrCacheMiss)

	store, err = NewStore(config.Config{Cache: config.Cache{Driver: "memory"}}, nil, logger)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	_, err = NewStore(config.Config{Cache: config.Cache{Driver: "redis"}}, nil, logger)
	assert.Error(t, err)

	_, err = NewStore(config.Config{Cache: config.Cache{Driver: "memcached"}}, nil, logger)
	assert.Error(t, err)
}
