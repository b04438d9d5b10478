package order

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Additional-Code/tableside/internal/domain"
	"github.com/Additional-Code/tableside/pkg/errorbank"
)

const maxItemQuantity = 1000

// maxOrderAmount is the largest value the DECIMAL(10,2) money columns hold.
var maxOrderAmount = decimal.RequireFromString("99999999.99")

// validateCreate checks the request shape and returns the parsed order type.
// Every problem is reported at once under the "fields" detail.
func validateCreate(in CreateOrderInput) (domain.OrderType, error) {
	fields := errorbank.FieldErrors{}

	if strings.TrimSpace(in.RestaurantID) == "" {
		fields.Add("restaurantId", "is required")
	}

	orderType, err := domain.ParseOrderType(in.OrderType)
	if err != nil {
		fields.Add("orderType", "must be one of delivery, pickup, dine_in")
	}

	if len(in.Items) == 0 {
		fields.Add("items", "at least one item is required")
	}
	for i, it := range in.Items {
		if strings.TrimSpace(it.MenuItemID) == "" {
			fields.Add(fmt.Sprintf("items[%d].menuItemId", i), "is required")
		}
		switch {
		case it.Quantity <= 0:
			fields.Add(fmt.Sprintf("items[%d].quantity", i), "must be greater than zero")
		case it.Quantity > maxItemQuantity:
			fields.Add(fmt.Sprintf("items[%d].quantity", i), fmt.Sprintf("must not exceed %d", maxItemQuantity))
		}
	}

	switch orderType {
	case domain.OrderTypeDelivery:
		if in.DeliveryAddress == nil || strings.TrimSpace(in.DeliveryAddress.Line1) == "" {
			fields.Add("deliveryAddress", "is required for delivery orders")
		}
	case domain.OrderTypeDineIn:
		if strings.TrimSpace(in.TableNumber) == "" {
			fields.Add("tableNumber", "is required for dine-in orders")
		}
	}

	if err := fields.Err("invalid order request"); err != nil {
		return "", err
	}
	return orderType, nil
}

// validateAmount rejects orders whose priced total cannot be stored.
func validateAmount(p domain.Pricing) error {
	if p.Total.GreaterThan(maxOrderAmount) {
		return errorbank.Validation("order total exceeds the maximum amount",
			errorbank.WithDetail("total", p.Total.StringFixed(2)),
			errorbank.WithDetail("max", maxOrderAmount.StringFixed(2)),
		)
	}
	return nil
}
