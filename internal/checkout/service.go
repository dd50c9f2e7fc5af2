package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout/helpers"
	"github.com/angelmondragon/storefront-backend/internal/checkout/reservation"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type reservationRunner interface {
	Reserve(ctx context.Context, tx *gorm.DB, requests []reservation.StockReservationRequest) error
}

type reservationEngine struct{}

func (reservationEngine) Reserve(ctx context.Context, tx *gorm.DB, requests []reservation.StockReservationRequest) error {
	return reservation.ReserveStock(ctx, tx, requests)
}

// Service converts a user's cart into an unpaid order.
type Service interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
}

type service struct {
	tx          txRunner
	cartRepo    cart.CartRepository
	ordersRepo  orders.Repository
	users       userLoader
	reservation reservationRunner
	metrics     *metrics.OrderMetrics
	logg        *logger.Logger
}

// NewService builds the checkout service. A nil reservation runner uses the
// default guarded stock decrement.
func NewService(
	tx txRunner,
	cartRepo cart.CartRepository,
	ordersRepo orders.Repository,
	users userLoader,
	reservation reservationRunner,
	m *metrics.OrderMetrics,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("user loader required")
	}
	if reservation == nil {
		reservation = reservationEngine{}
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		tx:          tx,
		cartRepo:    cartRepo,
		ordersRepo:  ordersRepo,
		users:       users,
		reservation: reservation,
		metrics:     m,
		logg:        logg,
	}, nil
}

// PlaceOrder snapshots the cart into an order, reserves stock for every line
// and empties the cart in one transaction. Nothing is persisted on failure.
func (s *service) PlaceOrder(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	if userID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	ctx = s.logg.WithUserID(ctx, userID.String())

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return uuid.Nil, err
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)

		record, err := cartRepo.FindByUserID(ctx, userID)
		if err != nil {
			return err
		}
		method, err := helpers.ValidatePreconditions(record, user)
		if err != nil {
			return err
		}

		order = buildOrder(userID, *user.ShippingAddress, method, record)
		if err := ordersRepo.Create(ctx, order); err != nil {
			return err
		}

		requests := lo.Map(record.Items, func(item types.CartLineItem, _ int) reservation.StockReservationRequest {
			return reservation.StockReservationRequest{ProductID: item.ProductID, Name: item.Name, Qty: item.Quantity}
		})
		if err := s.reservation.Reserve(ctx, tx, requests); err != nil {
			return err
		}

		cart.Empty(record)
		saved, err := cartRepo.SaveItems(ctx, record)
		if err != nil {
			return err
		}
		if !saved {
			return pkgerrors.New(pkgerrors.CodeConflict, "cart changed during checkout, please retry")
		}
		return nil
	})
	if err != nil {
		s.recordFailure(ctx, err)
		return uuid.Nil, err
	}

	s.metrics.OrderPlaced(order.PaymentMethod.String())
	s.logg.Info(s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
		"total":          order.TotalPrice.StringFixed(2),
		"payment_method": order.PaymentMethod.String(),
		"lines":          len(order.Items),
	}), "order.placed")
	return order.ID, nil
}

func (s *service) recordFailure(ctx context.Context, err error) {
	reason := pkgerrors.Reason(err)
	if reason == "" {
		if typed := pkgerrors.As(err); typed != nil {
			reason = string(typed.Code())
		} else {
			reason = string(pkgerrors.CodeInternal)
		}
	}
	s.metrics.CheckoutFailed(reason)
	s.logg.Warn(s.logg.WithField(ctx, "reason", reason), "order.checkout_rejected")
}

func buildOrder(userID uuid.UUID, addr types.ShippingAddress, method enums.PaymentMethod, record *models.Cart) *models.Order {
	return &models.Order{
		ID:              uuid.New(),
		UserID:          userID,
		ShippingAddress: addr,
		PaymentMethod:   method,
		ItemsPrice:      record.ItemsPrice,
		ShippingPrice:   record.ShippingPrice,
		TaxPrice:        record.TaxPrice,
		TotalPrice:      record.TotalPrice,
		Items: lo.Map(record.Items, func(item types.CartLineItem, _ int) models.OrderItem {
			return models.OrderItem{
				ProductID: item.ProductID,
				Name:      item.Name,
				Slug:      item.Slug,
				Image:     item.Image,
				Quantity:  item.Quantity,
				Price:     item.Price,
			}
		}),
	}
}
