package payments

import (
	"context"
	"strings"

	sq "github.com/square/square-go-sdk"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/money"
	"github.com/angelmondragon/storefront-backend/pkg/square"
)

type squareAPI interface {
	CreateDelayedPayment(ctx context.Context, params square.PaymentCreateParams) (*sq.Payment, error)
	CompletePayment(ctx context.Context, paymentID string) (*sq.Payment, error)
}

// SquareGateway authorizes a card token without capturing it, then completes
// the payment on confirmation.
type SquareGateway struct {
	api squareAPI
}

func NewSquareGateway(api squareAPI) (*SquareGateway, error) {
	if api == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "square client required")
	}
	return &SquareGateway{api: api}, nil
}

func (g *SquareGateway) Provider() string { return ProviderSquare }

func (g *SquareGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if strings.TrimSpace(req.SourceID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "square payments require a source id")
	}
	payment, err := g.api.CreateDelayedPayment(ctx, square.PaymentCreateParams{
		AmountCents: money.ToMinorUnits(req.Amount),
		SourceID:    req.SourceID,
		ReferenceID: req.OrderID.String(),
		Note:        "storefront order " + req.OrderID.String(),
	})
	if err != nil {
		return nil, err
	}
	id := deref(payment.GetID())
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeExternalGateway, "square payment id missing")
	}
	return &Intent{ID: id}, nil
}

func (g *SquareGateway) CaptureAndVerify(ctx context.Context, intentID string) (*CaptureResult, error) {
	if strings.TrimSpace(intentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "square payment id is required")
	}
	payment, err := g.api.CompletePayment(ctx, intentID)
	if err != nil {
		return nil, err
	}
	result := &CaptureResult{
		ID:         deref(payment.GetID()),
		Status:     deref(payment.GetStatus()),
		PayerEmail: deref(payment.GetBuyerEmailAddress()),
	}
	if amount := payment.GetAmountMoney(); amount != nil && amount.GetAmount() != nil {
		result.CapturedAmount = money.FromMinorUnits(*amount.GetAmount())
	}
	return result, nil
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
