package notifications

import (
	"context"

	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Notifier delivers customer-facing order notices.
type Notifier interface {
	SendReceipt(ctx context.Context, order *models.Order) error
	SendDeliveryNotice(ctx context.Context, order *models.Order) error
}

// LogNotifier records notices in the application log. It is the fallback
// when no broker is configured.
type LogNotifier struct {
	logg *logger.Logger
}

func NewLogNotifier(logg *logger.Logger) *LogNotifier {
	if logg == nil {
		logg = logger.Nop()
	}
	return &LogNotifier{logg: logg}
}

func (n *LogNotifier) SendReceipt(ctx context.Context, order *models.Order) error {
	return n.log(ctx, EventOrderPaid, order)
}

func (n *LogNotifier) SendDeliveryNotice(ctx context.Context, order *models.Order) error {
	return n.log(ctx, EventOrderDelivered, order)
}

func (n *LogNotifier) log(ctx context.Context, eventType string, order *models.Order) error {
	notice, err := buildNotice(order)
	if err != nil {
		return err
	}
	n.logg.Info(n.logg.WithFields(ctx, map[string]any{
		"event_type": eventType,
		"order_id":   notice.OrderID.String(),
		"total":      notice.Total,
	}), "notification.logged")
	return nil
}

// Fanout sends every notice to all targets and joins their failures.
type Fanout []Notifier

func (f Fanout) SendReceipt(ctx context.Context, order *models.Order) error {
	var err error
	for _, target := range f {
		err = multierr.Append(err, target.SendReceipt(ctx, order))
	}
	return err
}

func (f Fanout) SendDeliveryNotice(ctx context.Context, order *models.Order) error {
	var err error
	for _, target := range f {
		err = multierr.Append(err, target.SendDeliveryNotice(ctx, order))
	}
	return err
}
