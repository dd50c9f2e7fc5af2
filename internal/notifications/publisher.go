package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// PublishFunc sends one encoded envelope with its attributes and blocks
// until the broker acknowledges it.
type PublishFunc func(ctx context.Context, data []byte, attrs map[string]string) error

// TopicPublisher adapts a Pub/Sub publisher handle to PublishFunc.
func TopicPublisher(publisher *pubsub.Publisher) PublishFunc {
	return func(ctx context.Context, data []byte, attrs map[string]string) error {
		result := publisher.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
		_, err := result.Get(ctx)
		return err
	}
}

// PubSubNotifier publishes order notices to the receipt topic, where a mail
// worker turns them into emails.
type PubSubNotifier struct {
	publish PublishFunc
	logg    *logger.Logger
	now     func() time.Time
}

func NewPubSubNotifier(publish PublishFunc, logg *logger.Logger) (*PubSubNotifier, error) {
	if publish == nil {
		return nil, fmt.Errorf("publish func required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &PubSubNotifier{publish: publish, logg: logg, now: time.Now}, nil
}

func (n *PubSubNotifier) SendReceipt(ctx context.Context, order *models.Order) error {
	return n.send(ctx, EventOrderPaid, order)
}

func (n *PubSubNotifier) SendDeliveryNotice(ctx context.Context, order *models.Order) error {
	return n.send(ctx, EventOrderDelivered, order)
}

func (n *PubSubNotifier) send(ctx context.Context, eventType string, order *models.Order) error {
	envelope, err := NewEnvelope(eventType, order, n.now())
	if err != nil {
		return err
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	attrs := map[string]string{
		"event_type": eventType,
		"event_id":   envelope.EventID,
		"order_id":   order.ID.String(),
	}
	if err := n.publish(ctx, data, attrs); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	n.logg.Debug(n.logg.WithFields(ctx, map[string]any{
		"event_type": eventType,
		"event_id":   envelope.EventID,
	}), "notification.published")
	return nil
}
