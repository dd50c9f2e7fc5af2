package orders

import (
	"context"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

func seedOrder(t *testing.T, repo Repository, userID uuid.UUID) *models.Order {
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
		PaymentMethod: enums.PaymentMethodPayPal,
		ItemsPrice:    decimal.RequireFromString("59.98"),
		ShippingPrice: decimal.RequireFromString("10.00"),
		TaxPrice:      decimal.RequireFromString("9.00"),
		TotalPrice:    decimal.RequireFromString("78.98"),
		Items: []models.OrderItem{{
			ProductID: uuid.New(),
			Name:      gofakeit.ProductName(),
			Slug:      gofakeit.UUID(),
			Image:     gofakeit.URL(),
			Quantity:  2,
			Price:     decimal.RequireFromString("29.99"),
		}},
	}
	require.NoError(t, repo.Create(context.Background(), order))
	return order
}

type recordingNotifier struct {
	delivered []uuid.UUID
	err       error
}

func (n *recordingNotifier) SendDeliveryNotice(_ context.Context, order *models.Order) error {
	n.delivered = append(n.delivered, order.ID)
	return n.err
}
