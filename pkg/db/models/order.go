package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Order is created unpaid by checkout. Prices and the shipping address are
// snapshots and never change after creation.
type Order struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	ShippingAddress types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;not null"`
	PaymentMethod   enums.PaymentMethod   `gorm:"column:payment_method;not null"`
	ItemsPrice      decimal.Decimal       `gorm:"column:items_price;type:numeric(12,2);not null"`
	ShippingPrice   decimal.Decimal       `gorm:"column:shipping_price;type:numeric(12,2);not null"`
	TaxPrice        decimal.Decimal       `gorm:"column:tax_price;type:numeric(12,2);not null"`
	TotalPrice      decimal.Decimal       `gorm:"column:total_price;type:numeric(12,2);not null"`
	PaymentResult   *types.PaymentResult  `gorm:"column:payment_result;type:jsonb"`
	IsPaid          bool                  `gorm:"column:is_paid;not null;default:false"`
	PaidAt          *time.Time            `gorm:"column:paid_at"`
	IsDelivered     bool                  `gorm:"column:is_delivered;not null;default:false"`
	DeliveredAt     *time.Time            `gorm:"column:delivered_at"`
	Items           []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
