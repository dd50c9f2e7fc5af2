package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type repository struct {
	repo.Base
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Bind(tx)}
}

// Create inserts the order together with its items.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	if err := r.DB(ctx).Create(order).Error; err != nil {
		return repo.MapError(err, "", "create order")
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.DB(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, repo.MapError(err, "order not found", "load order")
	}
	return &order, nil
}

// FindByIDForUpdate reads the order row under a row lock. Items are not
// loaded. Only meaningful inside a transaction.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, repo.MapError(err, "order not found", "lock order")
	}
	return &order, nil
}

// ListByUser returns the user's orders newest first, with the cursor for the
// next page.
func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	query := r.DB(ctx).
		Preload("Items").
		Where("user_id = ?", userID)
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, "", repo.MapError(err, "", "list orders")
	}

	page, next := pagination.Trim(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return page, next, nil
}

// SetPendingPayment records the gateway intent on an unpaid order.
func (r *repository) SetPendingPayment(ctx context.Context, id uuid.UUID, result types.PaymentResult) error {
	res := r.DB(ctx).
		Model(&models.Order{}).
		Where("id = ? AND is_paid = ?", id, false).
		UpdateColumns(map[string]any{
			"payment_result": result,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return repo.MapError(res.Error, "", "record payment intent")
	}
	if res.RowsAffected == 0 {
		return AlreadyPaid()
	}
	return nil
}

// MarkPaid flips the order to paid only if it is still unpaid. It reports
// false when another writer already did.
func (r *repository) MarkPaid(ctx context.Context, id uuid.UUID, result types.PaymentResult, paidAt time.Time) (bool, error) {
	res := r.DB(ctx).
		Model(&models.Order{}).
		Where("id = ? AND is_paid = ?", id, false).
		UpdateColumns(map[string]any{
			"is_paid":        true,
			"paid_at":        paidAt,
			"payment_result": result,
			"updated_at":     paidAt,
		})
	if res.Error != nil {
		return false, repo.MapError(res.Error, "", "mark order paid")
	}
	return res.RowsAffected == 1, nil
}

// MarkDelivered sets the delivered flag on a paid order.
func (r *repository) MarkDelivered(ctx context.Context, id uuid.UUID, deliveredAt time.Time) error {
	res := r.DB(ctx).
		Model(&models.Order{}).
		Where("id = ? AND is_paid = ?", id, true).
		UpdateColumns(map[string]any{
			"is_delivered": true,
			"delivered_at": deliveredAt,
			"updated_at":   deliveredAt,
		})
	if res.Error != nil {
		return repo.MapError(res.Error, "", "mark order delivered")
	}
	if res.RowsAffected == 0 {
		return NotPaid()
	}
	return nil
}

// AlreadyPaid is the STATE_CONFLICT returned for a second paid transition.
func AlreadyPaid() error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order already paid").
		WithDetails(map[string]any{"reason": ReasonAlreadyPaid})
}

// NotPaid is the STATE_CONFLICT returned when delivering an unpaid order.
func NotPaid() error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not paid").
		WithDetails(map[string]any{"reason": ReasonNotPaid})
}
