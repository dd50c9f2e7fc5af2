package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type repository struct {
	repo.Base
}

// NewRepository binds the cart repository to the provided GORM handle.
func NewRepository(db *gorm.DB) CartRepository {
	return &repository{Base: repo.NewBase(db)}
}

// WithTx scopes the repository to the provided transaction.
func (r *repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Bind(tx)}
}

// FindByUserID returns the user's cart or nil when none exists.
func (r *repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return r.findOne(ctx, "user_id = ?", userID)
}

// FindBySessionID returns the anonymous cart or nil when none exists.
func (r *repository) FindBySessionID(ctx context.Context, sessionCartID string) (*models.Cart, error) {
	return r.findOne(ctx, "session_cart_id = ?", sessionCartID)
}

func (r *repository) findOne(ctx context.Context, query string, arg any) (*models.Cart, error) {
	var cart models.Cart
	err := r.DB(ctx).Where(query, arg).Take(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return &cart, nil
}

// Create inserts a new cart. Unique violations on the owner columns are
// returned unwrapped so callers can detect a lost creation race.
func (r *repository) Create(ctx context.Context, cart *models.Cart) error {
	return r.DB(ctx).Create(cart).Error
}

// SaveItems writes the cart's items and prices when the stored version still
// matches cart.Version. It reports false when another writer got there first.
func (r *repository) SaveItems(ctx context.Context, cart *models.Cart) (bool, error) {
	res := r.DB(ctx).
		Model(&models.Cart{}).
		Where("id = ? AND version = ?", cart.ID, cart.Version).
		UpdateColumns(map[string]any{
			"items":          cart.Items,
			"items_price":    cart.ItemsPrice,
			"shipping_price": cart.ShippingPrice,
			"tax_price":      cart.TaxPrice,
			"total_price":    cart.TotalPrice,
			"version":        gorm.Expr("version + 1"),
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "save cart")
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	cart.Version++
	return true, nil
}

// Delete removes the cart row.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.DB(ctx).Delete(&models.Cart{}, "id = ?", id).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart")
	}
	return nil
}

// AssignToUser moves an anonymous cart to the user and drops its session key.
func (r *repository) AssignToUser(ctx context.Context, id, userID uuid.UUID) error {
	res := r.DB(ctx).
		Model(&models.Cart{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"user_id":         userID,
			"session_cart_id": nil,
			"version":         gorm.Expr("version + 1"),
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "assign cart")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}
	return nil
}
