package pricing

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/storefront-backend/pkg/types"
)

func line(price string, qty int) types.CartLineItem {
	return types.CartLineItem{
		ProductID: uuid.New(),
		Name:      "item",
		Price:     decimal.RequireFromString(price),
		Quantity:  qty,
	}
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name                                string
		items                               []types.CartLineItem
		itemsPrice, shipping, tax, total    string
	}{
		{"empty", nil, "0", "0", "0", "0"},
		{"single line", []types.CartLineItem{line("29.99", 2)}, "59.98", "10", "9", "78.98"},
		{"exactly at threshold pays shipping", []types.CartLineItem{line("100.00", 1)}, "100", "10", "15", "125"},
		{"one cent over threshold ships free", []types.CartLineItem{line("100.01", 1)}, "100.01", "0", "15", "115.01"},
		{"tax rounds half away from zero", []types.CartLineItem{line("0.10", 1)}, "0.1", "10", "0.02", "10.12"},
		{"multiple lines", []types.CartLineItem{line("19.99", 3), line("5.25", 4)}, "80.97", "10", "12.15", "103.12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.items)
			assertAmount(t, "items", tt.itemsPrice, got.ItemsPrice)
			assertAmount(t, "shipping", tt.shipping, got.ShippingPrice)
			assertAmount(t, "tax", tt.tax, got.TaxPrice)
			assertAmount(t, "total", tt.total, got.TotalPrice)
		})
	}
}

func TestCalculateTotalIsSumOfParts(t *testing.T) {
	faker := gofakeit.New(42)
	for i := 0; i < 500; i++ {
		n := faker.IntRange(1, 5)
		items := make([]types.CartLineItem, 0, n)
		for j := 0; j < n; j++ {
			price := decimal.NewFromFloat(faker.Price(0.01, 250)).Round(2)
			items = append(items, types.CartLineItem{ProductID: uuid.New(), Price: price, Quantity: faker.IntRange(1, 9)})
		}

		got := Calculate(items)
		sum := got.ItemsPrice.Add(got.ShippingPrice).Add(got.TaxPrice)
		if !sum.Equal(got.TotalPrice) {
			t.Fatalf("total %s != items %s + shipping %s + tax %s", got.TotalPrice, got.ItemsPrice, got.ShippingPrice, got.TaxPrice)
		}
		for _, part := range []decimal.Decimal{got.ItemsPrice, got.ShippingPrice, got.TaxPrice, got.TotalPrice} {
			if !part.Equal(part.Round(2)) {
				t.Fatalf("amount %s has more than two decimals", part)
			}
		}
	}
}

func assertAmount(t *testing.T, name, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, decimal.RequireFromString(want).Equal(got), "%s: want %s, got %s", name, want, got)
}
