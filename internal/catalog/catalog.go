// Package catalog reads the restaurant and menu data orders are priced against.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/tableside/internal/cache"
	"github.com/Additional-Code/tableside/internal/config"
	"github.com/Additional-Code/tableside/internal/database"
	"github.com/Additional-Code/tableside/internal/entity"
)

var (
	// ErrMenuItemNotFound is returned when the item does not belong to the restaurant.
	ErrMenuItemNotFound = errors.New("menu item not found")
	// ErrMenuItemUnavailable is returned for items taken off the menu.
	ErrMenuItemUnavailable = errors.New("menu item unavailable")
)

var tracer = otel.Tracer("github.com/Additional-Code/tableside/catalog")

// maxPriceTTL bounds how long a price or availability change can go unseen
// when nothing calls InvalidatePrice.
const maxPriceTTL = time.Minute

// Module provides the catalog reader.
var Module = fx.Provide(New)

// Repository answers price, existence and staff membership lookups.
type Repository struct {
	db     *bun.DB
	cache  cache.Store
	ttl    time.Duration
	logger *zap.Logger
}

// New builds a catalog on the read connection. Prices are cached for the
// default TTL, capped at maxPriceTTL.
func New(conns *database.Connections, store cache.Store, cfg config.Config, logger *zap.Logger) *Repository {
	return NewRepository(conns.Reader, store, cfg.Cache.DefaultTTL, logger)
}

// NewRepository wires a catalog over an explicit database handle.
func NewRepository(db *bun.DB, store cache.Store, ttl time.Duration, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 || ttl > maxPriceTTL {
		ttl = maxPriceTTL
	}
	return &Repository{db: db, cache: store, ttl: ttl, logger: logger}
}

// ResolvePrice returns the current unit price of an available menu item of the restaurant.
func (r *Repository) ResolvePrice(ctx context.Context, restaurantID, menuItemID string) (decimal.Decimal, error) {
	ctx, span := tracer.Start(ctx, "Catalog.ResolvePrice", trace.WithAttributes(
		attribute.String("restaurant.id", restaurantID),
		attribute.String("menu_item.id", menuItemID),
	))
	defer span.End()

	key := priceKey(restaurantID, menuItemID)
	if price, ok := r.cachedPrice(ctx, key); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return price, nil
	}

	item := new(entity.MenuItem)
	err := r.db.NewSelect().Model(item).
		Where("id = ?", menuItemID).
		Where("restaurant_id = ?", restaurantID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, ErrMenuItemNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return decimal.Zero, fmt.Errorf("select menu item: %w", err)
	}
	if !item.IsAvailable {
		return decimal.Zero, ErrMenuItemUnavailable
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, []byte(item.Price.String()), r.ttl); err != nil {
			r.logger.Warn("cache menu price failed", zap.String("key", key), zap.Error(err))
		}
	}
	return item.Price, nil
}

// RestaurantExists reports whether an active restaurant with the id exists.
func (r *Repository) RestaurantExists(ctx context.Context, restaurantID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "Catalog.RestaurantExists", trace.WithAttributes(attribute.String("restaurant.id", restaurantID)))
	defer span.End()

	exists, err := r.db.NewSelect().Model((*entity.Restaurant)(nil)).
		Where("id = ?", restaurantID).
		Where("is_active = ?", true).
		Exists(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return false, fmt.Errorf("select restaurant: %w", err)
	}
	return exists, nil
}

// HasStaffAccess reports whether the user operates the restaurant.
func (r *Repository) HasStaffAccess(ctx context.Context, userID, restaurantID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "Catalog.HasStaffAccess", trace.WithAttributes(
		attribute.String("restaurant.id", restaurantID),
		attribute.String("user.id", userID),
	))
	defer span.End()

	if userID == "" || restaurantID == "" {
		return false, nil
	}
	ok, err := r.db.NewSelect().Model((*entity.RestaurantStaff)(nil)).
		Where("user_id = ?", userID).
		Where("restaurant_id = ?", restaurantID).
		Exists(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return false, fmt.Errorf("select restaurant staff: %w", err)
	}
	return ok, nil
}

// InvalidatePrice drops a cached price after a menu change.
func (r *Repository) InvalidatePrice(ctx context.Context, restaurantID, menuItemID string) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Delete(ctx, priceKey(restaurantID, menuItemID))
}

func (r *Repository) cachedPrice(ctx context.Context, key string) (decimal.Decimal, bool) {
	if r.cache == nil {
		return decimal.Zero, false
	}
	raw, err := r.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			r.logger.Warn("read cached menu price failed", zap.String("key", key), zap.Error(err))
		}
		return decimal.Zero, false
	}
	price, err := decimal.NewFromString(string(raw))
	if err != nil {
		r.logger.Warn("discarding malformed cached price", zap.String("key", key), zap.Error(err))
		_ = r.cache.Delete(ctx, key)
		return decimal.Zero, false
	}
	return price, true
}

func priceKey(restaurantID, menuItemID string) string {
	return "menu:price:" + restaurantID + ":" + menuItemID
}
