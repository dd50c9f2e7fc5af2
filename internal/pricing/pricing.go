// Package pricing computes cart and order totals.
//
// Each amount is rounded to cents on its own, half away from zero, and the
// total is the sum of the rounded parts so that
// items + shipping + tax == total holds exactly.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/types"
)

var (
	// FreeShippingThreshold is exclusive: an order of exactly 100.00 still pays shipping.
	FreeShippingThreshold = decimal.NewFromInt(100)
	FlatShipping          = decimal.NewFromInt(10)
	TaxRate               = decimal.RequireFromString("0.15")
)

// Breakdown holds the four 2-place amounts stored on carts and orders.
type Breakdown struct {
	ItemsPrice    decimal.Decimal `json:"itemsPrice"`
	ShippingPrice decimal.Decimal `json:"shippingPrice"`
	TaxPrice      decimal.Decimal `json:"taxPrice"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
}

// Zero is the breakdown of an empty cart.
func Zero() Breakdown {
	return Breakdown{
		ItemsPrice:    decimal.Zero,
		ShippingPrice: decimal.Zero,
		TaxPrice:      decimal.Zero,
		TotalPrice:    decimal.Zero,
	}
}

// Calculate prices the given lines. An empty list prices to all zeros.
func Calculate(items []types.CartLineItem) Breakdown {
	if len(items) == 0 {
		return Zero()
	}

	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Subtotal())
	}

	itemsPrice := round(sum)
	shipping := FlatShipping
	if itemsPrice.GreaterThan(FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	shipping = round(shipping)
	tax := round(itemsPrice.Mul(TaxRate))

	return Breakdown{
		ItemsPrice:    itemsPrice,
		ShippingPrice: shipping,
		TaxPrice:      tax,
		TotalPrice:    itemsPrice.Add(shipping).Add(tax),
	}
}

// decimal.Round uses half away from zero.
func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
