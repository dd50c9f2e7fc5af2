package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/pricing"
	pkgdb "github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// maxWriteAttempts bounds the optimistic read-modify-write loop.
const maxWriteAttempts = 3

// Service owns the pre-order line-item collection.
type Service interface {
	Resolve(ctx context.Context, id Identity) (*CartDTO, error)
	AddItem(ctx context.Context, id Identity, productID uuid.UUID, qty int) (*CartDTO, error)
	RemoveItem(ctx context.Context, id Identity, productID uuid.UUID) (*CartDTO, error)
	MergeOnSignIn(ctx context.Context, sessionCartID string, userID uuid.UUID) (*CartDTO, error)
}

type service struct {
	repo     CartRepository
	products productLoader
	tx       txRunner
	logg     *logger.Logger
}

// NewService builds the cart service.
func NewService(repo CartRepository, products productLoader, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, products: products, tx: tx, logg: logg}, nil
}

// Resolve returns the caller's cart, or nil when none exists.
func (s *service) Resolve(ctx context.Context, id Identity) (*CartDTO, error) {
	if err := id.validate(); err != nil {
		return nil, err
	}
	cart, err := s.find(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	return FromModel(cart), nil
}

func (s *service) AddItem(ctx context.Context, id Identity, productID uuid.UUID, qty int) (*CartDTO, error) {
	if err := id.validate(); err != nil {
		return nil, err
	}
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, true, func(items types.CartLineItems) (types.CartLineItems, error) {
		idx := items.IndexOf(productID)
		current := 0
		if idx >= 0 {
			current = items[idx].Quantity
		}
		if current+qty > product.Stock {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("not enough stock for %s", product.Name)).
				WithDetails(map[string]any{
					"reason":    "insufficient_stock",
					"productId": product.ID.String(),
					"available": product.Stock,
					"inCart":    current,
				})
		}

		line := types.CartLineItem{
			ProductID: product.ID,
			Name:      product.Name,
			Slug:      product.Slug,
			Image:     product.Image,
			Price:     product.Price,
			Quantity:  current + qty,
		}
		if idx >= 0 {
			items[idx] = line
			return items, nil
		}
		return append(items, line), nil
	})
}

func (s *service) RemoveItem(ctx context.Context, id Identity, productID uuid.UUID) (*CartDTO, error) {
	if err := id.validate(); err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, false, func(items types.CartLineItems) (types.CartLineItems, error) {
		idx := items.IndexOf(productID)
		if idx < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
		}
		if items[idx].Quantity > 1 {
			items[idx].Quantity--
			return items, nil
		}
		return lo.Filter(items, func(item types.CartLineItem, _ int) bool {
			return item.ProductID != productID
		}), nil
	})
}

// mutate runs change against a fresh copy of the cart's lines and writes the
// result back with a version check, retrying when a concurrent writer wins.
func (s *service) mutate(
	ctx context.Context,
	id Identity,
	createIfMissing bool,
	change func(types.CartLineItems) (types.CartLineItems, error),
) (*CartDTO, error) {
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		cart, err := s.find(ctx, s.repo, id)
		if err != nil {
			return nil, err
		}

		isNew := cart == nil
		if isNew {
			if !createIfMissing {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
			}
			cart = newCart(id)
		}

		items, err := change(append(types.CartLineItems{}, cart.Items...))
		if err != nil {
			return nil, err
		}
		applyItems(cart, items)

		if isNew {
			err := s.repo.Create(ctx, cart)
			if err == nil {
				return FromModel(cart), nil
			}
			if !pkgdb.IsUniqueViolation(err, "") {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
			}
		} else {
			saved, err := s.repo.SaveItems(ctx, cart)
			if err != nil {
				return nil, err
			}
			if saved {
				return FromModel(cart), nil
			}
		}

		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"cart_id": cart.ID.String(),
			"attempt": attempt,
		}), "cart.write_conflict")
	}
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart was modified concurrently, please retry")
}

// MergeOnSignIn makes the anonymous cart the user's cart, discarding any cart
// the user already had. Without an anonymous cart it returns the user's cart
// unchanged.
func (s *service) MergeOnSignIn(ctx context.Context, sessionCartID string, userID uuid.UUID) (*CartDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	var merged *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		userCart, err := repo.FindByUserID(ctx, userID)
		if err != nil {
			return err
		}
		merged = userCart

		if sessionCartID == "" {
			return nil
		}
		sessionCart, err := repo.FindBySessionID(ctx, sessionCartID)
		if err != nil {
			return err
		}
		if sessionCart == nil {
			return nil
		}

		if userCart != nil {
			if err := repo.Delete(ctx, userCart.ID); err != nil {
				return err
			}
		}
		if err := repo.AssignToUser(ctx, sessionCart.ID, userID); err != nil {
			return err
		}

		merged, err = repo.FindByUserID(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if merged != nil {
		s.logg.Info(s.logg.WithCartID(s.logg.WithUserID(ctx, userID.String()), merged.ID.String()), "cart.merged")
	}
	return FromModel(merged), nil
}

func (s *service) find(ctx context.Context, repo CartRepository, id Identity) (*models.Cart, error) {
	if id.IsUser() {
		return repo.FindByUserID(ctx, *id.UserID)
	}
	return repo.FindBySessionID(ctx, id.SessionCartID)
}

func newCart(id Identity) *models.Cart {
	cart := &models.Cart{ID: uuid.New(), Items: types.CartLineItems{}}
	if id.IsUser() {
		userID := *id.UserID
		cart.UserID = &userID
	} else {
		session := id.SessionCartID
		cart.SessionCartID = &session
	}
	return cart
}

func applyItems(cart *models.Cart, items types.CartLineItems) {
	if items == nil {
		items = types.CartLineItems{}
	}
	prices := pricing.Calculate(items)
	cart.Items = items
	cart.ItemsPrice = prices.ItemsPrice
	cart.ShippingPrice = prices.ShippingPrice
	cart.TaxPrice = prices.TaxPrice
	cart.TotalPrice = prices.TotalPrice
}

// Empty clears the lines and zeroes the prices. The cart row stays in place.
func Empty(cart *models.Cart) {
	applyItems(cart, types.CartLineItems{})
}
