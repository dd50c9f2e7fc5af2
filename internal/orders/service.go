package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Service exposes the order read side and the delivery transition.
type Service interface {
	Get(ctx context.Context, viewer Viewer, orderID uuid.UUID) (*OrderDTO, error)
	ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	Deliver(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
}

// Viewer identifies who is reading an order. Admins may read any order.
type Viewer struct {
	UserID  uuid.UUID
	IsAdmin bool
}

type service struct {
	repo     Repository
	tx       txRunner
	notifier DeliveryNotifier
	metrics  *metrics.OrderMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the order service. notifier and m may be nil.
func NewService(repo Repository, tx txRunner, notifier DeliveryNotifier, m *metrics.OrderMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:     repo,
		tx:       tx,
		notifier: notifier,
		metrics:  m,
		logg:     logg,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Get(ctx context.Context, viewer Viewer, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	// other users' orders look missing rather than forbidden
	if !viewer.IsAdmin && order.UserID != viewer.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return FromModel(order), nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	rows, next, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, err
	}
	list := &OrderList{Orders: make([]OrderDTO, 0, len(rows)), NextCursor: next}
	for i := range rows {
		list.Orders = append(list.Orders, *FromModel(&rows[i]))
	}
	return list, nil
}

// Deliver marks a paid order delivered. Repeating it refreshes deliveredAt
// but only the first transition sends the delivery notice.
func (s *service) Deliver(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	firstDelivery := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.IsPaid {
			return NotPaid()
		}
		firstDelivery = !order.IsDelivered
		return repo.MarkDelivered(ctx, orderID, s.now())
	})
	if err != nil {
		return nil, err
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, orderID.String())
	if firstDelivery {
		s.logg.Info(ctx, "order.delivered")
		s.metrics.OrderDelivered()
		if s.notifier != nil {
			if err := s.notifier.SendDeliveryNotice(ctx, order); err != nil {
				s.logg.Error(ctx, "delivery_notice.dispatch_failed", err)
			}
		}
	}
	return FromModel(order), nil
}
