package notifications

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/money"
)

const (
	EventOrderPaid      = "order.paid"
	EventOrderDelivered = "order.delivered"

	envelopeVersion = 1
	currencyCode    = "USD"
)

// Envelope is the stable JSON document published for every notification.
type Envelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	EventType  string          `json:"eventType"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}

type ReceiptLine struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
}

// OrderNotice is the data payload for both receipts and delivery notices.
type OrderNotice struct {
	OrderID     uuid.UUID     `json:"orderId"`
	UserID      uuid.UUID     `json:"userId"`
	PayerEmail  string        `json:"payerEmail,omitempty"`
	Provider    string        `json:"provider,omitempty"`
	Items       []ReceiptLine `json:"items"`
	ItemsTotal  string        `json:"itemsTotal"`
	Shipping    string        `json:"shipping"`
	Tax         string        `json:"tax"`
	Total       string        `json:"total"`
	PaidAt      *time.Time    `json:"paidAt,omitempty"`
	DeliveredAt *time.Time    `json:"deliveredAt,omitempty"`
}

func buildNotice(order *models.Order) (OrderNotice, error) {
	amounts := []decimal.Decimal{order.ItemsPrice, order.ShippingPrice, order.TaxPrice, order.TotalPrice}
	formatted := make([]string, len(amounts))
	for i, amount := range amounts {
		text, err := money.Format(amount, currencyCode)
		if err != nil {
			return OrderNotice{}, err
		}
		formatted[i] = text
	}

	notice := OrderNotice{
		OrderID:     order.ID,
		UserID:      order.UserID,
		ItemsTotal:  formatted[0],
		Shipping:    formatted[1],
		Tax:         formatted[2],
		Total:       formatted[3],
		PaidAt:      order.PaidAt,
		DeliveredAt: order.DeliveredAt,
	}
	if order.PaymentResult != nil {
		notice.PayerEmail = order.PaymentResult.PayerEmail
		notice.Provider = order.PaymentResult.Provider
	}
	notice.Items = lo.Map(order.Items, func(item models.OrderItem, _ int) ReceiptLine {
		unit, _ := money.Format(item.Price, currencyCode)
		return ReceiptLine{Name: item.Name, Quantity: item.Quantity, UnitPrice: unit}
	})
	return notice, nil
}

// NewEnvelope wraps the order notice for eventType.
func NewEnvelope(eventType string, order *models.Order, now time.Time) (*Envelope, error) {
	if order == nil {
		return nil, fmt.Errorf("order required")
	}
	notice, err := buildNotice(order)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(notice)
	if err != nil {
		return nil, fmt.Errorf("encode notice: %w", err)
	}
	return &Envelope{
		Version:    envelopeVersion,
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OccurredAt: now.UTC(),
		Data:       data,
	}, nil
}
