package users

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type userRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateShippingAddress(ctx context.Context, id uuid.UUID, addr types.ShippingAddress) error
	UpdatePaymentMethod(ctx context.Context, id uuid.UUID, method enums.PaymentMethod) error
}

// Service manages the address and payment preferences checkout depends on.
type Service interface {
	Profile(ctx context.Context, userID uuid.UUID) (*ProfileDTO, error)
	SetShippingAddress(ctx context.Context, userID uuid.UUID, addr types.ShippingAddress) (*ProfileDTO, error)
	SetPaymentMethod(ctx context.Context, userID uuid.UUID, method enums.PaymentMethod) (*ProfileDTO, error)
}

type service struct {
	repo userRepository
}

func NewService(repo userRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Profile(ctx context.Context, userID uuid.UUID) (*ProfileDTO, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) SetShippingAddress(ctx context.Context, userID uuid.UUID, addr types.ShippingAddress) (*ProfileDTO, error) {
	if !addr.IsComplete() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete")
	}
	if err := s.repo.UpdateShippingAddress(ctx, userID, addr); err != nil {
		return nil, err
	}
	return s.Profile(ctx, userID)
}

func (s *service) SetPaymentMethod(ctx context.Context, userID uuid.UUID, method enums.PaymentMethod) (*ProfileDTO, error) {
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported payment method %q", method))
	}
	if err := s.repo.UpdatePaymentMethod(ctx, userID, method); err != nil {
		return nil, err
	}
	return s.Profile(ctx, userID)
}
