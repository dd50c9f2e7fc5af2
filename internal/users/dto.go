package users

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// ProfileDTO is the checkout-facing view of a user.
type ProfileDTO struct {
	ID              uuid.UUID              `json:"id"`
	Email           string                 `json:"email"`
	Name            string                 `json:"name"`
	ShippingAddress *types.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   *enums.PaymentMethod   `json:"paymentMethod"`
}

// SetPaymentMethodRequest is the body of PUT /users/me/payment-method.
type SetPaymentMethodRequest struct {
	PaymentMethod string `json:"paymentMethod" validate:"required,oneof=PayPal Stripe Square CashOnDelivery"`
}

func FromModel(u *models.User) *ProfileDTO {
	if u == nil {
		return nil
	}
	return &ProfileDTO{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		ShippingAddress: u.ShippingAddress,
		PaymentMethod:   u.PaymentMethod,
	}
}
