package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/money"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const (
	reasonNotInitiated  = "payment_not_initiated"
	reasonFlowMismatch  = "payment_flow_mismatch"
	reasonIntentInvalid = "intent_mismatch"
	reasonIncomplete    = "payment_incomplete"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ReceiptNotifier is told, best effort, when an order becomes paid.
type ReceiptNotifier interface {
	SendReceipt(ctx context.Context, order *models.Order) error
}

// Service reconciles orders against the capture, webhook and manual payment
// flows. Every flow ends in the same guarded paid transition.
type Service interface {
	Initiate(ctx context.Context, userID, orderID uuid.UUID, req InitiateRequest) (*IntentDTO, error)
	Confirm(ctx context.Context, userID, orderID uuid.UUID, claimedIntentID string) (*orders.OrderDTO, error)
	CreateWebhookIntent(ctx context.Context, userID, orderID uuid.UUID) (*IntentDTO, error)
	ApplyWebhookEvent(ctx context.Context, event *WebhookEvent) (bool, error)
	PayManual(ctx context.Context, orderID uuid.UUID) (*orders.OrderDTO, error)
}

type ServiceParams struct {
	Orders          orders.Repository
	Tx              txRunner
	CaptureGateways map[enums.PaymentMethod]CaptureGateway
	WebhookGateway  WebhookGateway
	Notifier        ReceiptNotifier
	Metrics         *metrics.OrderMetrics
	Logger          *logger.Logger
}

type service struct {
	orders   orders.Repository
	tx       txRunner
	capture  map[enums.PaymentMethod]CaptureGateway
	webhook  WebhookGateway
	notifier ReceiptNotifier
	metrics  *metrics.OrderMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the payment service. Gateways may be absent; the flows
// that need them then report the provider as unavailable.
func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	capture := make(map[enums.PaymentMethod]CaptureGateway, len(params.CaptureGateways))
	for method, gw := range params.CaptureGateways {
		if gw != nil {
			capture[method] = gw
		}
	}
	return &service{
		orders:   params.Orders,
		tx:       params.Tx,
		capture:  capture,
		webhook:  params.WebhookGateway,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		logg:     logg,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Initiate opens a provider intent for the order total and records its id as
// the order's pending payment.
func (s *service) Initiate(ctx context.Context, userID, orderID uuid.UUID, req InitiateRequest) (*IntentDTO, error) {
	order, err := s.ownedUnpaidOrder(ctx, userID, orderID, enums.PaymentFlowCapture)
	if err != nil {
		return nil, err
	}
	gateway, err := s.captureGateway(order.PaymentMethod)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	intent, err := gateway.CreateIntent(ctx, IntentRequest{OrderID: order.ID, Amount: order.TotalPrice, SourceID: req.SourceID})
	s.metrics.ObserveGateway(gateway.Provider(), "create_intent", time.Since(start))
	if err != nil {
		s.logGatewayFailure(ctx, gateway.Provider(), "create_intent", err)
		return nil, err
	}

	pending := types.PaymentResult{
		ID:       intent.ID,
		Status:   enums.PaymentStatusPending.String(),
		Provider: gateway.Provider(),
	}
	if err := s.orders.SetPendingPayment(ctx, order.ID, pending); err != nil {
		return nil, err
	}
	return &IntentDTO{OrderID: order.ID, Provider: gateway.Provider(), IntentID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

// Confirm captures the intent recorded by Initiate and applies the paid
// transition when the provider reports the same intent as fully completed.
func (s *service) Confirm(ctx context.Context, userID, orderID uuid.UUID, claimedIntentID string) (*orders.OrderDTO, error) {
	flow := enums.PaymentFlowCapture
	order, err := s.ownedUnpaidOrder(ctx, userID, orderID, flow)
	if err != nil {
		return nil, err
	}
	if order.PaymentResult == nil || order.PaymentResult.ID == "" {
		s.metrics.PaymentRejected(flow.String(), reasonNotInitiated)
		return nil, stateConflict(reasonNotInitiated, "payment has not been initiated")
	}
	if claimedIntentID != order.PaymentResult.ID {
		s.metrics.PaymentRejected(flow.String(), reasonIntentInvalid)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent does not belong to this order").
			WithDetails(map[string]any{"reason": reasonIntentInvalid})
	}
	gateway, err := s.captureGateway(order.PaymentMethod)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := gateway.CaptureAndVerify(ctx, claimedIntentID)
	s.metrics.ObserveGateway(gateway.Provider(), "capture", time.Since(start))
	if err != nil {
		s.logGatewayFailure(ctx, gateway.Provider(), "capture", err)
		return nil, err
	}
	if result.ID != order.PaymentResult.ID || !result.Completed() {
		s.metrics.PaymentRejected(flow.String(), reasonIncomplete)
		s.logg.Warn(s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
			"provider":       gateway.Provider(),
			"stored_intent":  order.PaymentResult.ID,
			"capture_id":     result.ID,
			"capture_status": result.Status,
		}), "payment.capture_rejected")
		return nil, pkgerrors.New(pkgerrors.CodeExternalGateway, "payment was not completed by the provider")
	}

	paid, err := s.markPaid(ctx, order.ID, flow, func(*models.Order) types.PaymentResult {
		return types.PaymentResult{
			ID:             result.ID,
			Status:         enums.PaymentStatusCompleted.String(),
			PayerEmail:     result.PayerEmail,
			CapturedAmount: result.CapturedAmount,
			Provider:       gateway.Provider(),
		}
	})
	if err != nil {
		return nil, err
	}
	return orders.FromModel(paid), nil
}

// CreateWebhookIntent opens a provider intent whose completion arrives later
// as a signed event.
func (s *service) CreateWebhookIntent(ctx context.Context, userID, orderID uuid.UUID) (*IntentDTO, error) {
	order, err := s.ownedUnpaidOrder(ctx, userID, orderID, enums.PaymentFlowWebhook)
	if err != nil {
		return nil, err
	}
	if s.webhook == nil {
		return nil, providerUnavailable(order.PaymentMethod)
	}

	start := time.Now()
	intent, err := s.webhook.CreateIntent(ctx, IntentRequest{OrderID: order.ID, Amount: order.TotalPrice})
	s.metrics.ObserveGateway(s.webhook.Provider(), "create_intent", time.Since(start))
	if err != nil {
		s.logGatewayFailure(ctx, s.webhook.Provider(), "create_intent", err)
		return nil, err
	}

	pending := types.PaymentResult{
		ID:       intent.ID,
		Status:   enums.PaymentStatusPending.String(),
		Provider: s.webhook.Provider(),
	}
	if err := s.orders.SetPendingPayment(ctx, order.ID, pending); err != nil {
		return nil, err
	}
	return &IntentDTO{OrderID: order.ID, Provider: s.webhook.Provider(), IntentID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

// ApplyWebhookEvent marks the order named in a verified charge event paid. It
// reports whether this event changed the order. Events that are not
// successful charges, and repeats for an order that is already paid, are
// absorbed without error.
func (s *service) ApplyWebhookEvent(ctx context.Context, event *WebhookEvent) (bool, error) {
	flow := enums.PaymentFlowWebhook
	if event == nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "webhook event required")
	}
	if s.webhook == nil {
		return false, pkgerrors.New(pkgerrors.CodeDependency, "webhook gateway unavailable")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"event_id": event.ID, "event_type": event.Type})

	if !event.Succeeded {
		s.logg.Debug(ctx, "payment.webhook_ignored")
		return false, nil
	}

	orderID, err := s.webhook.ExtractOrderID(event)
	if err != nil {
		s.metrics.PaymentRejected(flow.String(), "invalid_metadata")
		return false, err
	}

	_, err = s.markPaid(ctx, orderID, flow, func(order *models.Order) types.PaymentResult {
		return types.PaymentResult{
			ID:             event.ChargeID,
			Status:         enums.PaymentStatusCompleted.String(),
			PayerEmail:     event.BillingEmail,
			CapturedAmount: money.FromMinorUnits(event.AmountCents),
			Provider:       s.webhook.Provider(),
		}
	})
	if pkgerrors.Reason(err) == orders.ReasonAlreadyPaid {
		s.logg.Info(s.logg.WithOrderID(ctx, orderID.String()), "payment.webhook_duplicate")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PayManual settles an order out of band, typically cash on delivery. The
// recorded result is synthetic.
func (s *service) PayManual(ctx context.Context, orderID uuid.UUID) (*orders.OrderDTO, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	paid, err := s.markPaid(ctx, orderID, enums.PaymentFlowManual, func(order *models.Order) types.PaymentResult {
		return types.PaymentResult{
			ID:             "manual-" + order.ID.String(),
			Status:         enums.PaymentStatusManual.String(),
			CapturedAmount: order.TotalPrice,
			Provider:       ProviderManual,
		}
	})
	if err != nil {
		return nil, err
	}
	return orders.FromModel(paid), nil
}

// markPaid applies the unpaid to paid transition under a row lock. A second
// attempt on the same order, from any flow, gets STATE_CONFLICT already_paid
// and changes nothing. The receipt goes out after commit and its failure is
// only logged.
func (s *service) markPaid(
	ctx context.Context,
	orderID uuid.UUID,
	flow enums.PaymentFlow,
	build func(*models.Order) types.PaymentResult,
) (*models.Order, error) {
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	var method enums.PaymentMethod
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.IsPaid {
			return orders.AlreadyPaid()
		}
		method = order.PaymentMethod

		applied, err := repo.MarkPaid(ctx, orderID, build(order), s.now())
		if err != nil {
			return err
		}
		if !applied {
			return orders.AlreadyPaid()
		}
		return nil
	})
	if err != nil {
		if reason := pkgerrors.Reason(err); reason != "" {
			s.metrics.PaymentRejected(flow.String(), reason)
		}
		return nil, err
	}

	s.metrics.PaymentApplied(flow.String(), method.String())
	s.logg.Info(s.logg.WithField(ctx, "flow", flow.String()), "order.paid")

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		if err := s.notifier.SendReceipt(ctx, order); err != nil {
			s.logg.Error(ctx, "receipt.dispatch_failed", err)
		}
	}
	return order, nil
}

func (s *service) ownedUnpaidOrder(ctx context.Context, userID, orderID uuid.UUID, flow enums.PaymentFlow) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.IsPaid {
		s.metrics.PaymentRejected(flow.String(), orders.ReasonAlreadyPaid)
		return nil, orders.AlreadyPaid()
	}
	if order.PaymentMethod.Flow() != flow {
		s.metrics.PaymentRejected(flow.String(), reasonFlowMismatch)
		return nil, stateConflict(reasonFlowMismatch, fmt.Sprintf("order is paid with %s", order.PaymentMethod))
	}
	return order, nil
}

func (s *service) captureGateway(method enums.PaymentMethod) (CaptureGateway, error) {
	gateway, ok := s.capture[method]
	if !ok {
		return nil, providerUnavailable(method)
	}
	return gateway, nil
}

func (s *service) logGatewayFailure(ctx context.Context, provider, op string, err error) {
	s.logg.Error(s.logg.WithFields(ctx, map[string]any{
		"provider":  provider,
		"operation": op,
	}), "payment.gateway_failed", err)
}

func providerUnavailable(method enums.PaymentMethod) error {
	return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("%s payments are not configured", method))
}

func stateConflict(reason, message string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, message).WithDetails(map[string]any{"reason": reason})
}
