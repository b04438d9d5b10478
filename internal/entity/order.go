package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Order is the row shape of the orders table.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID              string          `bun:"id,pk"`
	OrderNumber     int64           `bun:"order_number,notnull,unique"`
	CustomerID      string          `bun:"customer_id,notnull"`
	RestaurantID    string          `bun:"restaurant_id,notnull"`
	OrderType       string          `bun:"order_type,notnull"`
	Status          string          `bun:"status,notnull"`
	PayWithCrypto   bool            `bun:"pay_with_crypto,notnull"`
	Subtotal        decimal.Decimal `bun:"subtotal,type:decimal(10,2),notnull"`
	TaxAmount       decimal.Decimal `bun:"tax_amount,type:decimal(10,2),notnull"`
	ServiceFee      decimal.Decimal `bun:"service_fee,type:decimal(10,2),notnull"`
	DeliveryFee     decimal.Decimal `bun:"delivery_fee,type:decimal(10,2),notnull"`
	CryptoDiscount  decimal.Decimal `bun:"crypto_discount,type:decimal(10,2),notnull"`
	Total           decimal.Decimal `bun:"total,type:decimal(10,2),notnull"`
	DeliveryAddress *Address        `bun:"delivery_address,type:json"`
	TableNumber     *string         `bun:"table_number"`
	CreatedAt       time.Time       `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time       `bun:"updated_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	CompletedAt     *time.Time      `bun:"completed_at"`
	CancelledAt     *time.Time      `bun:"cancelled_at"`
}

// Address is the JSON document stored in orders.delivery_address.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// OrderItem snapshots a requested menu item and its price at order time.
type OrderItem struct {
	bun.BaseModel `bun:"table:order_items"`

	ID         int64           `bun:"id,pk,autoincrement"`
	OrderID    string          `bun:"order_id,notnull"`
	MenuItemID string          `bun:"menu_item_id,notnull"`
	Quantity   int             `bun:"quantity,notnull"`
	UnitPrice  decimal.Decimal `bun:"unit_price,type:decimal(10,2),notnull"`
	LineTotal  decimal.Decimal `bun:"line_total,type:decimal(10,2),notnull"`
}

// OrderStatusHistory is an append-only audit row of one status change.
type OrderStatusHistory struct {
	bun.BaseModel `bun:"table:order_status_history"`

	ID        string    `bun:"id,pk"`
	OrderID   string    `bun:"order_id,notnull"`
	Status    string    `bun:"status,notnull"`
	ChangedBy string    `bun:"changed_by,notnull"`
	Note      *string   `bun:"note"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}

// OrderNumber is the issuance ledger for human-facing order numbers; the
// autoincrement key is the number.
type OrderNumber struct {
	bun.BaseModel `bun:"table:order_numbers"`

	ID       int64     `bun:"id,pk,autoincrement"`
	IssuedAt time.Time `bun:"issued_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}
