package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// CartRepository defines the persistence surface required by the cart service
// and by checkout.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	FindBySessionID(ctx context.Context, sessionCartID string) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) error
	SaveItems(ctx context.Context, cart *models.Cart) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AssignToUser(ctx context.Context, id, userID uuid.UUID) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Identity carries the caller's cart ownership keys. An authenticated user id
// wins over the anonymous session id.
type Identity struct {
	UserID        *uuid.UUID
	SessionCartID string
}

// IsUser reports whether the identity resolves by user id.
func (i Identity) IsUser() bool {
	return i.UserID != nil && *i.UserID != uuid.Nil
}

func (i Identity) validate() error {
	if !i.IsUser() && i.SessionCartID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart identity required")
	}
	return nil
}
