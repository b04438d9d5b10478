package seeder

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/tableside/internal/catalog"
	"github.com/Additional-Code/tableside/internal/database"
	"github.com/Additional-Code/tableside/internal/entity"
)

// DemoRestaurantID identifies the seeded restaurant.
const DemoRestaurantID = "demo-kitchen"

// Module provides the seeder to CLI commands.
var Module = fx.Provide(New)

// PriceInvalidator drops cached menu prices.
type PriceInvalidator interface {
	InvalidatePrice(ctx context.Context, restaurantID, menuItemID string) error
}

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	prices PriceInvalidator
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, prices *catalog.Repository, logger *zap.Logger) *Seeder {
	return NewSeeder(conns.Writer, prices, logger)
}

// NewSeeder constructs a Seeder for an opened database.
func NewSeeder(db *bun.DB, prices PriceInvalidator, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{db: db, prices: prices, logger: logger}
}

// Catalog seeds a demo restaurant, its menu and a staff link for ownerID.
// Existing rows are left untouched.
func (s *Seeder) Catalog(ctx context.Context, ownerID string) error {
	restaurant := &entity.Restaurant{ID: DemoRestaurantID, Name: "Demo Kitchen", Slug: "demo-kitchen", IsActive: true}
	items := []entity.MenuItem{
		{ID: "demo-jollof", RestaurantID: DemoRestaurantID, Name: "Jollof rice", Price: decimal.RequireFromString("12.50"), IsAvailable: true},
		{ID: "demo-suya", RestaurantID: DemoRestaurantID, Name: "Beef suya", Price: decimal.RequireFromString("9.00"), IsAvailable: true},
		{ID: "demo-puff", RestaurantID: DemoRestaurantID, Name: "Puff-puff", Price: decimal.RequireFromString("3.25"), IsAvailable: true},
		{ID: "demo-pepper-soup", RestaurantID: DemoRestaurantID, Name: "Goat pepper soup", Price: decimal.RequireFromString("15.00"), IsAvailable: false},
	}

	seeded := make([]entity.MenuItem, len(items))
	copy(seeded, items)

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := s.insertIgnore(tx.NewInsert().Model(restaurant)).Exec(ctx); err != nil {
			return fmt.Errorf("seed restaurant: %w", err)
		}
		if _, err := s.insertIgnore(tx.NewInsert().Model(&items)).Exec(ctx); err != nil {
			return fmt.Errorf("seed menu items: %w", err)
		}
		if ownerID == "" {
			return nil
		}
		staff := &entity.RestaurantStaff{
			ID:           "staff-" + ownerID + "-" + DemoRestaurantID,
			UserID:       ownerID,
			RestaurantID: DemoRestaurantID,
			Role:         "owner",
		}
		if _, err := s.insertIgnore(tx.NewInsert().Model(staff)).Exec(ctx); err != nil {
			return fmt.Errorf("seed staff: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.prices != nil {
		for _, item := range seeded {
			if err := s.prices.InvalidatePrice(ctx, item.RestaurantID, item.ID); err != nil {
				s.logger.Warn("invalidate seeded price", zap.String("menu_item_id", item.ID), zap.Error(err))
			}
		}
	}

	s.logger.Info("seeded catalog",
		zap.String("restaurant_id", DemoRestaurantID),
		zap.Int("menu_items", len(seeded)),
		zap.String("owner_id", ownerID),
	)
	return nil
}

// insertIgnore skips rows that already exist. RETURNING is suppressed so a
// conflict does not scan zero rows back over the model.
func (s *Seeder) insertIgnore(q *bun.InsertQuery) *bun.InsertQuery {
	if s.db.Dialect().Name() == dialect.MySQL {
		return q.Ignore()
	}
	return q.On("CONFLICT (id) DO NOTHING").Returning("NULL")
}
