package stripe

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"
)

// OrderIDMetadataKey is the PaymentIntent metadata key carrying the order id.
// Charges created from the intent inherit it.
const OrderIDMetadataKey = "orderId"

// CreatePaymentIntent creates an automatic-capture intent for amountCents and
// tags it with the order id.
func (c *Client) CreatePaymentIntent(ctx context.Context, orderID string, amountCents int64) (*stripe.PaymentIntent, error) {
	if c == nil {
		return nil, errors.New("stripe client not initialized")
	}
	if orderID == "" {
		return nil, errors.New("order id is required")
	}
	if amountCents <= 0 {
		return nil, errors.New("amount must be positive")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(c.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata(OrderIDMetadataKey, orderID)

	return paymentintent.New(params)
}
