package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderType classifies how an order is fulfilled; it drives the delivery fee.
type OrderType string

const (
	OrderTypeDelivery OrderType = "delivery"
	OrderTypePickup   OrderType = "pickup"
	OrderTypeDineIn   OrderType = "dine_in"
)

// ParseOrderType normalises a client supplied order type.
func ParseOrderType(raw string) (OrderType, error) {
	switch t := OrderType(strings.ToLower(strings.TrimSpace(raw))); t {
	case OrderTypeDelivery, OrderTypePickup, OrderTypeDineIn:
		return t, nil
	case "dine-in", "dinein":
		return OrderTypeDineIn, nil
	default:
		return "", fmt.Errorf("unknown order type %q", raw)
	}
}

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending        Status = "PENDING"
	StatusConfirmed      Status = "CONFIRMED"
	StatusPreparing      Status = "PREPARING"
	StatusReady          Status = "READY"
	StatusOutForDelivery Status = "OUT_FOR_DELIVERY"
	StatusCompleted      Status = "COMPLETED"
	StatusCancelled      Status = "CANCELLED"
	StatusRefunded       Status = "REFUNDED"
)

// Statuses lists every known status in lifecycle order.
var Statuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusPreparing,
	StatusReady,
	StatusOutForDelivery,
	StatusCompleted,
	StatusCancelled,
	StatusRefunded,
}

// ParseStatus resolves a client supplied status, case-insensitively.
func ParseStatus(raw string) (Status, error) {
	candidate := Status(strings.ToUpper(strings.TrimSpace(raw)))
	for _, s := range Statuses {
		if s == candidate {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown order status %q", raw)
}

// Address is the structured delivery destination of a delivery order.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// Pricing is the monetary breakdown of an order.
type Pricing struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	ServiceFee     decimal.Decimal `json:"serviceFee"`
	DeliveryFee    decimal.Decimal `json:"deliveryFee"`
	CryptoDiscount decimal.Decimal `json:"cryptoDiscount"`
	Total          decimal.Decimal `json:"total"`
}

// LineItem is a priced snapshot of one requested menu item.
type LineItem struct {
	MenuItemID string          `json:"menuItemId"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	LineTotal  decimal.Decimal `json:"lineTotal"`
}

// Order is one customer purchase transaction.
type Order struct {
	ID              string     `json:"id"`
	Number          int64      `json:"orderNumber"`
	CustomerID      string     `json:"customerId"`
	RestaurantID    string     `json:"restaurantId"`
	Type            OrderType  `json:"orderType"`
	Status          Status     `json:"status"`
	PayWithCrypto   bool       `json:"payWithCrypto"`
	Pricing         Pricing    `json:"pricing"`
	DeliveryAddress *Address   `json:"deliveryAddress,omitempty"`
	TableNumber     string     `json:"tableNumber,omitempty"`
	Items           []LineItem `json:"items,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	CancelledAt     *time.Time `json:"cancelledAt,omitempty"`
}

// StatusChange is one immutable row of an order's audit trail.
type StatusChange struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"orderId"`
	Status    Status    `json:"status"`
	ChangedBy string    `json:"changedBy"`
	Note      *string   `json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
