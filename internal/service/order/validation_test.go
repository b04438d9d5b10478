package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/tableside/internal/domain"
	"github.com/Additional-Code/tableside/pkg/errorbank"
)

func TestValidateCreateReportsEveryField(t *testing.T) {
	_, err := validateCreate(CreateOrderInput{
		OrderType: "delivery",
		Items:     []ItemInput{{MenuItemID: "", Quantity: -1}},
	})
	require.Error(t, err)

	var appErr *errorbank.AppError
	require.ErrorAs(t, err, &appErr)
	fields, ok := appErr.Details()["fields"].(map[string]string)
	require.True(t, ok)
	assert.Contains(t, fields, "restaurantId")
	assert.Contains(t, fields, "items[0].menuItemId")
	assert.Contains(t, fields, "items[0].quantity")
	assert.Contains(t, fields, "deliveryAddress")
}

func TestValidateCreateAcceptsPickup(t *testing.T) {
	orderType, err := validateCreate(CreateOrderInput{
		RestaurantID: "r1",
		OrderType:    "PICKUP",
		Items:        []ItemInput{{MenuItemID: "m1", Quantity: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderTypePickup, orderType)
}

func TestValidateCreateCapsQuantity(t *testing.T) {
	_, err := validateCreate(CreateOrderInput{
		RestaurantID: "r1",
		OrderType:    "pickup",
		Items:        []ItemInput{{MenuItemID: "m1", Quantity: maxItemQuantity + 1}},
	})

	var appErr *errorbank.AppError
	require.ErrorAs(t, err, &appErr)
	fields, ok := appErr.Details()["fields"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must not exceed 1000", fields["items[0].quantity"])

	_, err = validateCreate(CreateOrderInput{
		RestaurantID: "r1",
		OrderType:    "pickup",
		Items:        []ItemInput{{MenuItemID: "m1", Quantity: maxItemQuantity}},
	})
	assert.NoError(t, err)
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, validateAmount(domain.Pricing{Total: maxOrderAmount}))

	err := validateAmount(domain.Pricing{Total: maxOrderAmount.Add(decimal.RequireFromString("0.01"))})
	var appErr *errorbank.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errorbank.KindValidation, appErr.Kind())
	assert.Equal(t, "99999999.99", appErr.Details()["max"])
}
