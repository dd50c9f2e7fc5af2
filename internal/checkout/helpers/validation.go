package helpers

import (
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Precondition failure reasons. Each carries the page the buyer should be
// sent to.
const (
	ReasonCartEmpty               = "cart_empty"
	ReasonShippingAddressRequired = "shipping_address_required"
	ReasonPaymentMethodRequired   = "payment_method_required"
)

var redirects = map[string]string{
	ReasonCartEmpty:               "/cart",
	ReasonShippingAddressRequired: "/shipping-address",
	ReasonPaymentMethodRequired:   "/payment-method",
}

// ValidatePreconditions checks, in order, that the cart has lines, the user
// saved a complete shipping address and the user picked a payment method.
func ValidatePreconditions(cart *models.Cart, user *models.User) (enums.PaymentMethod, error) {
	if cart == nil || cart.IsEmpty() {
		return "", precondition(ReasonCartEmpty, "your cart is empty")
	}
	if user == nil || user.ShippingAddress == nil || !user.ShippingAddress.IsComplete() {
		return "", precondition(ReasonShippingAddressRequired, "a shipping address is required")
	}
	if user.PaymentMethod == nil || !user.PaymentMethod.IsValid() {
		return "", precondition(ReasonPaymentMethodRequired, "a payment method is required")
	}
	for _, item := range cart.Items {
		if item.Quantity <= 0 {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "cart contains an invalid quantity")
		}
	}
	return *user.PaymentMethod, nil
}

// Redirect returns the remediation page for a precondition reason.
func Redirect(reason string) string {
	return redirects[reason]
}

func precondition(reason, message string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, message).WithDetails(map[string]any{
		"reason":   reason,
		"redirect": redirects[reason],
	})
}
