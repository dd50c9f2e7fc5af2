package payments

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/money"
	pkgstripe "github.com/angelmondragon/storefront-backend/pkg/stripe"
)

type stripeAPI interface {
	CreatePaymentIntent(ctx context.Context, orderID string, amountCents int64) (*stripe.PaymentIntent, error)
	SigningSecret() string
}

// StripeGateway creates PaymentIntents tagged with the order id and turns
// signed charge events back into payments.
type StripeGateway struct {
	api stripeAPI
}

func NewStripeGateway(api stripeAPI) (*StripeGateway, error) {
	if api == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	return &StripeGateway{api: api}, nil
}

func (g *StripeGateway) Provider() string { return ProviderStripe }

func (g *StripeGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	intent, err := g.api.CreatePaymentIntent(ctx, req.OrderID.String(), money.ToMinorUnits(req.Amount))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeExternalGateway, err, "create stripe payment intent")
	}
	return &Intent{ID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

// VerifyWebhook checks the Stripe-Signature header and decodes the event.
// Only charge payloads are decoded; other event types come back with just
// their id and type.
func (g *StripeGateway) VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	if strings.TrimSpace(signature) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing")
	}
	event, err := webhook.ConstructEvent(payload, signature, g.api.SigningSecret())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeExternalGateway, err, "verify stripe signature")
	}

	out := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if event.Type != stripe.EventTypeChargeSucceeded || event.Data == nil {
		return out, nil
	}

	var charge stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode charge event")
	}
	out.ChargeID = charge.ID
	out.Succeeded = charge.Paid && charge.Status == stripe.ChargeStatusSucceeded
	out.AmountCents = charge.Amount
	out.Metadata = charge.Metadata
	if charge.BillingDetails != nil {
		out.BillingEmail = charge.BillingDetails.Email
	}
	if out.BillingEmail == "" {
		out.BillingEmail = charge.ReceiptEmail
	}
	return out, nil
}

func (g *StripeGateway) ExtractOrderID(event *WebhookEvent) (uuid.UUID, error) {
	if event == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook event required")
	}
	raw := strings.TrimSpace(event.Metadata[pkgstripe.OrderIDMetadataKey])
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id missing from charge metadata")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id in charge metadata")
	}
	return id, nil
}
