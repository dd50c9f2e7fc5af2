package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const (
	// ReasonAlreadyPaid marks a rejected second paid transition.
	ReasonAlreadyPaid = "already_paid"
	// ReasonNotPaid marks a delivery attempted before payment.
	ReasonNotPaid = "not_paid"
)

// OrderItemDTO is the API view of an order line.
type OrderItemDTO struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Image     string          `json:"image"`
	Quantity  int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
}

// OrderDTO is the API view of an order.
type OrderDTO struct {
	ID              uuid.UUID             `json:"id"`
	UserID          uuid.UUID             `json:"userId"`
	ShippingAddress types.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   enums.PaymentMethod   `json:"paymentMethod"`
	Items           []OrderItemDTO        `json:"items"`
	ItemsPrice      decimal.Decimal       `json:"itemsPrice"`
	ShippingPrice   decimal.Decimal       `json:"shippingPrice"`
	TaxPrice        decimal.Decimal       `json:"taxPrice"`
	TotalPrice      decimal.Decimal       `json:"totalPrice"`
	PaymentResult   *types.PaymentResult  `json:"paymentResult,omitempty"`
	IsPaid          bool                  `json:"isPaid"`
	PaidAt          *time.Time            `json:"paidAt,omitempty"`
	IsDelivered     bool                  `json:"isDelivered"`
	DeliveredAt     *time.Time            `json:"deliveredAt,omitempty"`
	CreatedAt       time.Time             `json:"createdAt"`
}

// OrderList is one page of a user's order history.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	return &OrderDTO{
		ID:              o.ID,
		UserID:          o.UserID,
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   o.PaymentMethod,
		Items: lo.Map(o.Items, func(item models.OrderItem, _ int) OrderItemDTO {
			return OrderItemDTO{
				ProductID: item.ProductID,
				Name:      item.Name,
				Slug:      item.Slug,
				Image:     item.Image,
				Quantity:  item.Quantity,
				Price:     item.Price,
			}
		}),
		ItemsPrice:    o.ItemsPrice,
		ShippingPrice: o.ShippingPrice,
		TaxPrice:      o.TaxPrice,
		TotalPrice:    o.TotalPrice,
		PaymentResult: o.PaymentResult,
		IsPaid:        o.IsPaid,
		PaidAt:        o.PaidAt,
		IsDelivered:   o.IsDelivered,
		DeliveredAt:   o.DeliveredAt,
		CreatedAt:     o.CreatedAt,
	}
}
