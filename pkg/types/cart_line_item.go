package types

import (
	"database/sql/driver"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartLineItem is one product line embedded in a cart document.
type CartLineItem struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"qty"`
}

// Subtotal returns price times quantity, unrounded.
func (l CartLineItem) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartLineItems preserves insertion order.
type CartLineItems []CartLineItem

// IndexOf returns the position of the line for productID or -1.
func (items CartLineItems) IndexOf(productID uuid.UUID) int {
	for i, item := range items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// Value stores the lines as a JSON array; nil is written as [].
func (items CartLineItems) Value() (driver.Value, error) {
	if items == nil {
		return "[]", nil
	}
	return jsonValue([]CartLineItem(items))
}

// Scan decodes the JSON array.
func (items *CartLineItems) Scan(value interface{}) error {
	if value == nil {
		*items = CartLineItems{}
		return nil
	}
	var decoded []CartLineItem
	if err := jsonScan("cart line items", value, &decoded); err != nil {
		return err
	}
	if decoded == nil {
		decoded = []CartLineItem{}
	}
	*items = decoded
	return nil
}
