package payments

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Provider names recorded on payment results and metrics.
const (
	ProviderPayPal = "paypal"
	ProviderSquare = "square"
	ProviderStripe = "stripe"
	ProviderManual = "manual"
)

// IntentRequest asks a provider to open a payment for an order total.
// SourceID is the client-side payment token some providers require.
type IntentRequest struct {
	OrderID  uuid.UUID
	Amount   decimal.Decimal
	SourceID string
}

// Intent is the provider's handle for a payment in progress.
type Intent struct {
	ID           string
	ClientSecret string
}

// CaptureResult is what a capture gateway reports after settling an intent.
type CaptureResult struct {
	ID             string
	Status         string
	PayerEmail     string
	CapturedAmount decimal.Decimal
}

// Completed reports whether the provider considers the payment fully settled.
func (r CaptureResult) Completed() bool {
	return strings.EqualFold(r.Status, enums.PaymentStatusCompleted.String())
}

// CaptureGateway is a two-phase provider: the buyer approves an intent, then
// the server captures it.
type CaptureGateway interface {
	Provider() string
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	CaptureAndVerify(ctx context.Context, intentID string) (*CaptureResult, error)
}

// WebhookEvent is a verified provider notification. Succeeded is set only for
// events reporting a completed charge.
type WebhookEvent struct {
	ID           string
	Type         string
	ChargeID     string
	Succeeded    bool
	BillingEmail string
	AmountCents  int64
	Metadata     map[string]string
}

// WebhookGateway is a provider that settles payments asynchronously and
// reports completion through signed server-to-server events.
type WebhookGateway interface {
	Provider() string
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error)
	ExtractOrderID(event *WebhookEvent) (uuid.UUID, error)
}
