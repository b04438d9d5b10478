package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Restaurant is the subset of the restaurants table the order service reads.
// Boolean flags carry no bun default: bun would write DEFAULT for a false
// value and the column default lives in the migrations.
type Restaurant struct {
	bun.BaseModel `bun:"table:restaurants"`

	ID        string    `bun:"id,pk"`
	Name      string    `bun:"name,notnull"`
	Slug      string    `bun:"slug,notnull,unique"`
	IsActive  bool      `bun:"is_active,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}

// MenuItem is the subset of the menu_items table needed for pricing.
type MenuItem struct {
	bun.BaseModel `bun:"table:menu_items"`

	ID           string          `bun:"id,pk"`
	RestaurantID string          `bun:"restaurant_id,notnull"`
	Name         string          `bun:"name,notnull"`
	Price        decimal.Decimal `bun:"price,type:decimal(10,2),notnull"`
	IsAvailable  bool            `bun:"is_available,notnull"`
}

// RestaurantStaff links a user to a restaurant they operate.
type RestaurantStaff struct {
	bun.BaseModel `bun:"table:restaurant_owners"`

	ID           string `bun:"id,pk"`
	UserID       string `bun:"user_id,notnull"`
	RestaurantID string `bun:"restaurant_id,notnull"`
	Role         string `bun:"role,notnull"`
}
