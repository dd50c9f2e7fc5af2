package products

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Repository reads products and applies stock reservations.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bind(tx)}
}

// Create inserts a product. Used by seeding and administrative tooling.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	if err := r.DB(ctx).Create(product).Error; err != nil {
		return repo.MapError(err, "", "create product")
	}
	return nil
}

// FindByID loads a product or returns NOT_FOUND.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, repo.MapError(err, "product not found", "load product")
	}
	return &product, nil
}

// ReserveStock decrements stock by qty only when enough is available. It
// returns a STATE_CONFLICT naming the product when the guard rejects the
// update, leaving the row untouched.
func (r *Repository) ReserveStock(ctx context.Context, productID uuid.UUID, name string, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	res := r.DB(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("insufficient stock for %s", name)).
			WithDetails(map[string]any{
				"reason":    "insufficient_stock",
				"productId": productID.String(),
				"product":   name,
			})
	}
	return nil
}
