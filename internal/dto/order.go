package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Additional-Code/tableside/internal/domain"
)

// OrderItemRequest is one requested menu item. Prices are never accepted from clients.
type OrderItemRequest struct {
	MenuItemID string `json:"menuItemId"`
	Quantity   int    `json:"quantity"`
}

// CreateOrderRequest is the body of POST /api/orders.
type CreateOrderRequest struct {
	RestaurantID    string             `json:"restaurantId"`
	OrderType       string             `json:"orderType"`
	Items           []OrderItemRequest `json:"items"`
	DeliveryAddress *domain.Address    `json:"deliveryAddress"`
	TableNumber     string             `json:"tableNumber"`
	PayWithCrypto   bool               `json:"payWithCrypto"`
}

// UpdateStatusRequest is the body of PATCH /api/orders/:id/status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// CancelOrderRequest is the body of POST /api/orders/:id/cancel.
type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// PricingResponse renders money as fixed two-decimal strings.
type PricingResponse struct {
	Subtotal       string `json:"subtotal"`
	TaxAmount      string `json:"taxAmount"`
	ServiceFee     string `json:"serviceFee"`
	DeliveryFee    string `json:"deliveryFee"`
	CryptoDiscount string `json:"cryptoDiscount"`
	Total          string `json:"total"`
}

// OrderItemResponse is a priced line of an order.
type OrderItemResponse struct {
	MenuItemID string `json:"menuItemId"`
	Quantity   int    `json:"quantity"`
	UnitPrice  string `json:"unitPrice"`
	LineTotal  string `json:"lineTotal"`
}

// OrderResponse represents an order as exposed via transport layers.
type OrderResponse struct {
	ID              string              `json:"id"`
	OrderNumber     int64               `json:"orderNumber"`
	CustomerID      string              `json:"customerId"`
	RestaurantID    string              `json:"restaurantId"`
	OrderType       string              `json:"orderType"`
	Status          string              `json:"status"`
	PayWithCrypto   bool                `json:"payWithCrypto"`
	Pricing         PricingResponse     `json:"pricing"`
	DeliveryAddress *domain.Address     `json:"deliveryAddress,omitempty"`
	TableNumber     string              `json:"tableNumber,omitempty"`
	Items           []OrderItemResponse `json:"items,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
	CompletedAt     *time.Time          `json:"completedAt,omitempty"`
	CancelledAt     *time.Time          `json:"cancelledAt,omitempty"`
}

// StatusChangeResponse is one audit trail entry.
type StatusChangeResponse struct {
	Status    string    `json:"status"`
	ChangedBy string    `json:"changedBy"`
	Note      *string   `json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewOrderResponse maps a domain order onto its transport shape.
func NewOrderResponse(o *domain.Order) OrderResponse {
	resp := OrderResponse{
		ID:            o.ID,
		OrderNumber:   o.Number,
		CustomerID:    o.CustomerID,
		RestaurantID:  o.RestaurantID,
		OrderType:     string(o.Type),
		Status:        string(o.Status),
		PayWithCrypto: o.PayWithCrypto,
		Pricing: PricingResponse{
			Subtotal:       money(o.Pricing.Subtotal),
			TaxAmount:      money(o.Pricing.TaxAmount),
			ServiceFee:     money(o.Pricing.ServiceFee),
			DeliveryFee:    money(o.Pricing.DeliveryFee),
			CryptoDiscount: money(o.Pricing.CryptoDiscount),
			Total:          money(o.Pricing.Total),
		},
		DeliveryAddress: o.DeliveryAddress,
		TableNumber:     o.TableNumber,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		CompletedAt:     o.CompletedAt,
		CancelledAt:     o.CancelledAt,
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
			UnitPrice:  money(item.UnitPrice),
			LineTotal:  money(item.LineTotal),
		})
	}
	return resp
}

// NewOrderListResponse maps a page of orders.
func NewOrderListResponse(orders []domain.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, NewOrderResponse(&orders[i]))
	}
	return out
}

// NewHistoryResponse maps an order's audit trail, oldest first.
func NewHistoryResponse(changes []domain.StatusChange) []StatusChangeResponse {
	out := make([]StatusChangeResponse, 0, len(changes))
	for _, change := range changes {
		out = append(out, StatusChangeResponse{
			Status:    string(change.Status),
			ChangedBy: change.ChangedBy,
			Note:      change.Note,
			CreatedAt: change.CreatedAt,
		})
	}
	return out
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
