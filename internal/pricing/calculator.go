// Package pricing computes the cost breakdown of an order.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/Additional-Code/tableside/internal/domain"
)

var (
	taxRate            = decimal.RequireFromString("0.075")
	cryptoDiscountRate = decimal.RequireFromString("0.02")
	serviceFee         = decimal.RequireFromString("1.50")
	deliveryFee        = decimal.RequireFromString("5.00")
)

const moneyPlaces = 2

// Calculate derives tax, fees, discount and total for a subtotal.
// Subtotal must be non-negative; it is returned as given.
func Calculate(subtotal decimal.Decimal, orderType domain.OrderType, payWithCrypto bool) domain.Pricing {
	tax := subtotal.Mul(taxRate)

	delivery := decimal.Zero
	if orderType == domain.OrderTypeDelivery {
		delivery = deliveryFee
	}

	discount := decimal.Zero
	if payWithCrypto {
		discount = subtotal.Mul(cryptoDiscountRate)
	}

	total := subtotal.Add(tax).Add(serviceFee).Add(delivery).Sub(discount)

	return domain.Pricing{
		Subtotal:       subtotal,
		TaxAmount:      roundMoney(tax),
		ServiceFee:     serviceFee,
		DeliveryFee:    delivery,
		CryptoDiscount: roundMoney(discount),
		Total:          roundMoney(total),
	}
}

// roundMoney rounds half away from zero, which is half-up for the non-negative
// amounts handled here.
func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(moneyPlaces)
}
