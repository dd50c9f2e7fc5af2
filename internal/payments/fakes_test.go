package payments

import (
	"context"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type fakeCaptureGateway struct {
	provider   string
	intentID   string
	result     *CaptureResult
	createErr  error
	captureErr error
	captured   []string
}

func (g *fakeCaptureGateway) Provider() string { return g.provider }

func (g *fakeCaptureGateway) CreateIntent(_ context.Context, _ IntentRequest) (*Intent, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	return &Intent{ID: g.intentID}, nil
}

func (g *fakeCaptureGateway) CaptureAndVerify(_ context.Context, intentID string) (*CaptureResult, error) {
	g.captured = append(g.captured, intentID)
	if g.captureErr != nil {
		return nil, g.captureErr
	}
	return g.result, nil
}

type fakeWebhookGateway struct {
	StripeGateway
	intent *Intent
}

func (g *fakeWebhookGateway) CreateIntent(context.Context, IntentRequest) (*Intent, error) {
	return g.intent, nil
}

type recordingNotifier struct {
	receipts []uuid.UUID
	err      error
}

func (n *recordingNotifier) SendReceipt(_ context.Context, order *models.Order) error {
	n.receipts = append(n.receipts, order.ID)
	return n.err
}

func seedOrder(t *testing.T, repo orders.Repository, userID uuid.UUID, method enums.PaymentMethod) *models.Order {
	t.Helper()
	order := &models.Order{
		UserID: userID,
		ShippingAddress: types.ShippingAddress{
			FullName:      gofakeit.Name(),
			StreetAddress: gofakeit.Street(),
			City:          gofakeit.City(),
			PostalCode:    gofakeit.Zip(),
			Country:       gofakeit.Country(),
		},
		PaymentMethod: method,
		ItemsPrice:    decimal.RequireFromString("59.98"),
		ShippingPrice: decimal.RequireFromString("10.00"),
		TaxPrice:      decimal.RequireFromString("9.00"),
		TotalPrice:    decimal.RequireFromString("78.98"),
		Items: []models.OrderItem{{
			ProductID: uuid.New(),
			Name:      gofakeit.ProductName(),
			Slug:      gofakeit.UUID(),
			Quantity:  2,
			Price:     decimal.RequireFromString("29.99"),
		}},
	}
	require.NoError(t, repo.Create(context.Background(), order))
	return order
}
