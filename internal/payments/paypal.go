package payments

import (
	"context"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/paypal"
)

type paypalAPI interface {
	CreateOrder(ctx context.Context, referenceID, value string) (*paypal.Order, error)
	CaptureOrder(ctx context.Context, orderID string) (*paypal.Order, error)
}

// PayPalGateway adapts PayPal Orders v2 to the capture flow.
type PayPalGateway struct {
	api paypalAPI
}

func NewPayPalGateway(api paypalAPI) (*PayPalGateway, error) {
	if api == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "paypal client required")
	}
	return &PayPalGateway{api: api}, nil
}

func (g *PayPalGateway) Provider() string { return ProviderPayPal }

func (g *PayPalGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	order, err := g.api.CreateOrder(ctx, req.OrderID.String(), req.Amount.StringFixed(2))
	if err != nil {
		return nil, err
	}
	return &Intent{ID: order.ID}, nil
}

func (g *PayPalGateway) CaptureAndVerify(ctx context.Context, intentID string) (*CaptureResult, error) {
	order, err := g.api.CaptureOrder(ctx, intentID)
	if err != nil {
		return nil, err
	}
	captured := decimal.Zero
	if raw := order.CapturedValue(); raw != "" {
		captured, err = decimal.NewFromString(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeExternalGateway, err, "parse paypal capture amount")
		}
	}
	return &CaptureResult{
		ID:             order.ID,
		Status:         order.Status,
		PayerEmail:     order.PayerEmail(),
		CapturedAmount: captured,
	}, nil
}
