package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// User holds the checkout preferences read by order assembly.
type User struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	Email           string                 `gorm:"column:email;type:text;not null;uniqueIndex"`
	Name            string                 `gorm:"column:name;not null"`
	Role            enums.UserRole         `gorm:"column:role;not null;default:customer"`
	ShippingAddress *types.ShippingAddress `gorm:"column:shipping_address;type:jsonb"`
	PaymentMethod   *enums.PaymentMethod   `gorm:"column:payment_method"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
