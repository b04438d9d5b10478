package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/Additional-Code/tableside/internal/cache"
	"github.com/Additional-Code/tableside/internal/entity"
	"github.com/Additional-Code/tableside/internal/migration/migrationtest"
)

func seedCatalog(t *testing.T, db *bun.DB) {
	t.Helper()
	ctx := context.Background()

	restaurants := []entity.Restaurant{
		{ID: "rest-1", Name: "Mama Put", Slug: "mama-put", IsActive: true},
		{ID: "rest-2", Name: "Closed Kitchen", Slug: "closed-kitchen", IsActive: false},
	}
	_, err := db.NewInsert().Model(&restaurants).Exec(ctx)
	require.NoError(t, err)

	items := []entity.MenuItem{
		{ID: "jollof", RestaurantID: "rest-1", Name: "Jollof rice", Price: decimal.RequireFromString("12.50"), IsAvailable: true},
		{ID: "suya", RestaurantID: "rest-1", Name: "Suya", Price: decimal.RequireFromString("8.00"), IsAvailable: false},
	}
	_, err = db.NewInsert().Model(&items).Exec(ctx)
	require.NoError(t, err)

	staff := &entity.RestaurantStaff{ID: "rs-1", UserID: "owner-1", RestaurantID: "rest-1", Role: "owner"}
	_, err = db.NewInsert().Model(staff).Exec(ctx)
	require.NoError(t, err)
}

func TestResolvePrice(t *testing.T) {
	db := migrationtest.SQLite(t)
	seedCatalog(t, db)
	store := cache.NewMemoryStore(time.Minute)
	repo := NewRepository(db, store, time.Minute, zap.NewNop())
	ctx := context.Background()

	price, err := repo.ResolvePrice(ctx, "rest-1", "jollof")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("12.50")))

	cached, err := store.Get(ctx, priceKey("rest-1", "jollof"))
	require.NoError(t, err)
	assert.Equal(t, "12.5", string(cached))

	_, err = repo.ResolvePrice(ctx, "rest-1", "suya")
	assert.ErrorIs(t, err, ErrMenuItemUnavailable)

	_, err = repo.ResolvePrice(ctx, "rest-2", "jollof")
	assert.ErrorIs(t, err, ErrMenuItemNotFound)

	_, err = repo.ResolvePrice(ctx, "rest-1", "missing")
	assert.ErrorIs(t, err, ErrMenuItemNotFound)
}

func TestResolvePriceServesFromCache(t *testing.T) {
	db := migrationtest.SQLite(t)
	seedCatalog(t, db)
	store := cache.NewMemoryStore(time.Minute)
	repo := NewRepository(db, store, time.Minute, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, priceKey("rest-1", "jollof"), []byte("99.99"), 0))
	price, err := repo.ResolvePrice(ctx, "rest-1", "jollof")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("99.99")))

	require.NoError(t, repo.InvalidatePrice(ctx, "rest-1", "jollof"))
	price, err = repo.ResolvePrice(ctx, "rest-1", "jollof")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("12.50")))

	require.NoError(t, store.Set(ctx, priceKey("rest-1", "jollof"), []byte("not-a-number"), 0))
	price, err = repo.ResolvePrice(ctx, "rest-1", "jollof")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("12.50")))
}

func TestRestaurantExists(t *testing.T) {
	db := migrationtest.SQLite(t)
	seedCatalog(t, db)
	repo := NewRepository(db, cache.NewNoopStore(), time.Minute, nil)
	ctx := context.Background()

	ok, err := repo.RestaurantExists(ctx, "rest-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.RestaurantExists(ctx, "rest-2")
	require.NoError(t, err)
	assert.False(t, ok, "inactive restaurants do not accept orders")

	ok, err = repo.RestaurantExists(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasStaffAccess(t *testing.T) {
	db := migrationtest.SQLite(t)
	seedCatalog(t, db)
	repo := NewRepository(db, nil, time.Minute, nil)
	ctx := context.Background()

	ok, err := repo.HasStaffAccess(ctx, "owner-1", "rest-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.HasStaffAccess(ctx, "owner-1", "rest-2")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.HasStaffAccess(ctx, "", "rest-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFalseFlagsArePersisted(t *testing.T) {
	db := migrationtest.SQLite(t)
	seedCatalog(t, db)
	ctx := context.Background()

	var closed entity.Restaurant
	require.NoError(t, db.NewSelect().Model(&closed).Where("id = ?", "rest-2").Scan(ctx))
	assert.False(t, closed.IsActive)

	var suya entity.MenuItem
	require.NoError(t, db.NewSelect().Model(&suya).Where("id = ?", "suya").Scan(ctx))
	assert.False(t, suya.IsAvailable)
}

func TestPriceTTLIsCapped(t *testing.T) {
	db := migrationtest.SQLite(t)
	seedCatalog(t, db)

	assert.Equal(t, maxPriceTTL, NewRepository(db, nil, time.Hour, nil).ttl)
	assert.Equal(t, maxPriceTTL, NewRepository(db, nil, 0, nil).ttl)
	assert.Equal(t, 10*time.Second, NewRepository(db, nil, 10*time.Second, nil).ttl)
}
