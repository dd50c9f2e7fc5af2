package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Cart is owned by exactly one of UserID or SessionCartID. Version increments
// on every write and guards read-modify-write updates.
type Cart struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID        *uuid.UUID          `gorm:"column:user_id;type:uuid;uniqueIndex"`
	SessionCartID *string             `gorm:"column:session_cart_id;uniqueIndex"`
	Items         types.CartLineItems `gorm:"column:items;type:jsonb;not null"`
	ItemsPrice    decimal.Decimal     `gorm:"column:items_price;type:numeric(12,2);not null"`
	ShippingPrice decimal.Decimal     `gorm:"column:shipping_price;type:numeric(12,2);not null"`
	TaxPrice      decimal.Decimal     `gorm:"column:tax_price;type:numeric(12,2);not null"`
	TotalPrice    decimal.Decimal     `gorm:"column:total_price;type:numeric(12,2);not null"`
	Version       int64               `gorm:"column:version;not null;default:0"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Items == nil {
		c.Items = types.CartLineItems{}
	}
	return nil
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}
