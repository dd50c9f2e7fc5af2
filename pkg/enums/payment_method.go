package enums

import "fmt"

// PaymentMethod describes how a buyer intends to settle an order.
type PaymentMethod string

const (
	PaymentMethodPayPal         PaymentMethod = "PayPal"
	PaymentMethodStripe         PaymentMethod = "Stripe"
	PaymentMethodSquare         PaymentMethod = "Square"
	PaymentMethodCashOnDelivery PaymentMethod = "CashOnDelivery"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodPayPal,
	PaymentMethodStripe,
	PaymentMethodSquare,
	PaymentMethodCashOnDelivery,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// Flow reports which settlement path completes orders paid with this method.
func (p PaymentMethod) Flow() PaymentFlow {
	switch p {
	case PaymentMethodPayPal, PaymentMethodSquare:
		return PaymentFlowCapture
	case PaymentMethodStripe:
		return PaymentFlowWebhook
	default:
		return PaymentFlowManual
	}
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}

// PaymentFlow names one of the three ways an order becomes paid.
type PaymentFlow string

const (
	PaymentFlowCapture PaymentFlow = "capture"
	PaymentFlowWebhook PaymentFlow = "webhook"
	PaymentFlowManual  PaymentFlow = "manual"
)

// String implements fmt.Stringer.
func (f PaymentFlow) String() string {
	return string(f)
}
