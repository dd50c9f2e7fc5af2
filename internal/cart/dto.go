package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// CartDTO is the API view of a cart.
type CartDTO struct {
	ID            uuid.UUID            `json:"id"`
	Items         []types.CartLineItem `json:"items"`
	ItemsPrice    decimal.Decimal      `json:"itemsPrice"`
	ShippingPrice decimal.Decimal      `json:"shippingPrice"`
	TaxPrice      decimal.Decimal      `json:"taxPrice"`
	TotalPrice    decimal.Decimal      `json:"totalPrice"`
}

// AddItemRequest is the body of POST /cart/items.
type AddItemRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0,lte=1000"`
}

func FromModel(c *models.Cart) *CartDTO {
	if c == nil {
		return nil
	}
	items := []types.CartLineItem(c.Items)
	if items == nil {
		items = []types.CartLineItem{}
	}
	return &CartDTO{
		ID:            c.ID,
		Items:         items,
		ItemsPrice:    c.ItemsPrice,
		ShippingPrice: c.ShippingPrice,
		TaxPrice:      c.TaxPrice,
		TotalPrice:    c.TotalPrice,
	}
}
