package seeder

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/tableside/internal/entity"
	"github.com/Additional-Code/tableside/internal/migration/migrationtest"
)

type recordingInvalidator struct {
	mu   sync.Mutex
	keys []string
}

func (r *recordingInvalidator) InvalidatePrice(_ context.Context, restaurantID, menuItemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, restaurantID+"/"+menuItemID)
	return nil
}

func TestCatalogIsIdempotent(t *testing.T) {
	db := migrationtest.SQLite(t)
	prices := &recordingInvalidator{}
	s := NewSeeder(db, prices, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.Catalog(ctx, "owner-1"))
	require.NoError(t, s.Catalog(ctx, "owner-1"))

	restaurants, err := db.NewSelect().Model((*entity.Restaurant)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, restaurants)

	var items []entity.MenuItem
	require.NoError(t, db.NewSelect().Model(&items).Where("restaurant_id = ?", DemoRestaurantID).Order("id").Scan(ctx))
	require.Len(t, items, 4)
	assert.Equal(t, "demo-jollof", items[0].ID)
	assert.Equal(t, "12.5", items[0].Price.String())

	staff, err := db.NewSelect().Model((*entity.RestaurantStaff)(nil)).Where("user_id = ?", "owner-1").Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, staff)

	assert.Len(t, prices.keys, 8)
	assert.Contains(t, prices.keys, DemoRestaurantID+"/demo-suya")
}

func TestCatalogWithoutOwner(t *testing.T) {
	db := migrationtest.SQLite(t)
	s := NewSeeder(db, nil, nil)
	ctx := context.Background()

	require.NoError(t, s.Catalog(ctx, ""))

	staff, err := db.NewSelect().Model((*entity.RestaurantStaff)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, staff)
}

func TestCatalogStoresAvailabilityFlags(t *testing.T) {
	db := migrationtest.SQLite(t)
	s := NewSeeder(db, nil, nil)
	ctx := context.Background()

	require.NoError(t, s.Catalog(ctx, ""))

	var soup entity.MenuItem
	require.NoError(t, db.NewSelect().Model(&soup).Where("id = ?", "demo-pepper-soup").Scan(ctx))
	assert.False(t, soup.IsAvailable)

	var jollof entity.MenuItem
	require.NoError(t, db.NewSelect().Model(&jollof).Where("id = ?", "demo-jollof").Scan(ctx))
	assert.True(t, jollof.IsAvailable)
}
