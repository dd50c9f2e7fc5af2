package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, string, error)
	SetPendingPayment(ctx context.Context, id uuid.UUID, result types.PaymentResult) error
	MarkPaid(ctx context.Context, id uuid.UUID, result types.PaymentResult, paidAt time.Time) (bool, error)
	MarkDelivered(ctx context.Context, id uuid.UUID, deliveredAt time.Time) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// DeliveryNotifier is told once when an order first becomes delivered.
type DeliveryNotifier interface {
	SendDeliveryNotice(ctx context.Context, order *models.Order) error
}
