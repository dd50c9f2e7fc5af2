package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	pkgstripe "github.com/angelmondragon/storefront-backend/pkg/stripe"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

var decimalComparer = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

type harness struct {
	svc      Service
	orders   orders.Repository
	paypal   *fakeCaptureGateway
	notifier *recordingNotifier
}

func newHarness(t *testing.T) harness {
	t.Helper()
	conn, client := dbtest.Client(t)
	repo := orders.NewRepository(conn)
	paypal := &fakeCaptureGateway{provider: ProviderPayPal, intentID: "PAYPAL-ORDER-1"}
	notifier := &recordingNotifier{}

	svc, err := NewService(ServiceParams{
		Orders: repo,
		Tx:     client,
		CaptureGateways: map[enums.PaymentMethod]CaptureGateway{
			enums.PaymentMethodPayPal: paypal,
		},
		WebhookGateway: &fakeWebhookGateway{intent: &Intent{ID: "pi_1", ClientSecret: "pi_1_secret"}},
		Notifier:       notifier,
	})
	require.NoError(t, err)
	return harness{svc: svc, orders: repo, paypal: paypal, notifier: notifier}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestCaptureFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	buyer := uuid.New()
	order := seedOrder(t, h.orders, buyer, enums.PaymentMethodPayPal)

	intent, err := h.svc.Initiate(ctx, buyer, order.ID, InitiateRequest{})
	require.NoError(t, err)
	assert.Equal(t, "PAYPAL-ORDER-1", intent.IntentID)
	assert.Equal(t, ProviderPayPal, intent.Provider)

	pending, err := h.orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, pending.PaymentResult)
	assert.Equal(t, enums.PaymentStatusPending.String(), pending.PaymentResult.Status)
	assert.False(t, pending.IsPaid)

	h.paypal.result = &CaptureResult{
		ID:             "PAYPAL-ORDER-1",
		Status:         "COMPLETED",
		PayerEmail:     "buyer@example.com",
		CapturedAmount: decimal.RequireFromString("78.98"),
	}
	paid, err := h.svc.Confirm(ctx, buyer, order.ID, "PAYPAL-ORDER-1")
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)
	require.NotNil(t, paid.PaidAt)

	want := &types.PaymentResult{
		ID:             "PAYPAL-ORDER-1",
		Status:         "COMPLETED",
		PayerEmail:     "buyer@example.com",
		CapturedAmount: decimal.RequireFromString("78.98"),
		Provider:       ProviderPayPal,
	}
	if diff := cmp.Diff(want, paid.PaymentResult, decimalComparer); diff != "" {
		t.Fatalf("payment result mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []uuid.UUID{order.ID}, h.notifier.receipts)
}

func TestPaidTransitionHappensOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	buyer := uuid.New()
	order := seedOrder(t, h.orders, buyer, enums.PaymentMethodPayPal)

	_, err := h.svc.PayManual(ctx, order.ID)
	require.NoError(t, err)
	before, err := h.orders.FindByID(ctx, order.ID)
	require.NoError(t, err)

	_, err = h.svc.PayManual(ctx, order.ID)
	assert.Equal(t, orders.ReasonAlreadyPaid, pkgerrors.Reason(err))

	_, err = h.svc.Confirm(ctx, buyer, order.ID, "PAYPAL-ORDER-1")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, orders.ReasonAlreadyPaid, pkgerrors.Reason(err))
	assert.Empty(t, h.paypal.captured)

	applied, err := h.svc.ApplyWebhookEvent(ctx, &WebhookEvent{
		ID:          "evt_dup",
		Type:        "charge.succeeded",
		ChargeID:    "ch_dup",
		Succeeded:   true,
		AmountCents: 7898,
		Metadata:    map[string]string{pkgstripe.OrderIDMetadataKey: order.ID.String()},
	})
	require.NoError(t, err, "duplicates are absorbed")
	assert.False(t, applied)

	after, err := h.orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, before.PaidAt.Equal(*after.PaidAt))
	if diff := cmp.Diff(before.PaymentResult, after.PaymentResult, decimalComparer); diff != "" {
		t.Fatalf("payment result changed (-before +after):\n%s", diff)
	}
	assert.Len(t, h.notifier.receipts, 1)
}

func TestConfirmRejectsForeignIntent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	buyer := uuid.New()
	order := seedOrder(t, h.orders, buyer, enums.PaymentMethodPayPal)

	_, err := h.svc.Confirm(ctx, buyer, order.ID, "PAYPAL-ORDER-1")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "confirm before initiate")

	_, err = h.svc.Initiate(ctx, buyer, order.ID, InitiateRequest{})
	require.NoError(t, err)

	_, err = h.svc.Confirm(ctx, buyer, order.ID, "SOMEONE-ELSES-ORDER")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Empty(t, h.paypal.captured)

	_, err = h.svc.Confirm(ctx, uuid.New(), order.ID, "PAYPAL-ORDER-1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestConfirmRejectsIncompleteCapture(t *testing.T) {
	tests := []struct {
		name   string
		result *CaptureResult
		err    error
		code   pkgerrors.Code
	}{
		{name: "pending status", result: &CaptureResult{ID: "PAYPAL-ORDER-1", Status: "PENDING"}, code: pkgerrors.CodeExternalGateway},
		{name: "different intent", result: &CaptureResult{ID: "PAYPAL-ORDER-2", Status: "COMPLETED"}, code: pkgerrors.CodeExternalGateway},
		{name: "provider error", err: pkgerrors.New(pkgerrors.CodeExternalGateway, "paypal down"), code: pkgerrors.CodeExternalGateway},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			buyer := uuid.New()
			order := seedOrder(t, h.orders, buyer, enums.PaymentMethodPayPal)
			_, err := h.svc.Initiate(ctx, buyer, order.ID, InitiateRequest{})
			require.NoError(t, err)

			h.paypal.result = tc.result
			h.paypal.captureErr = tc.err
			_, err = h.svc.Confirm(ctx, buyer, order.ID, "PAYPAL-ORDER-1")
			assert.True(t, pkgerrors.IsCode(err, tc.code), "got %v", err)

			stored, err := h.orders.FindByID(ctx, order.ID)
			require.NoError(t, err)
			assert.False(t, stored.IsPaid)
			assert.Nil(t, stored.PaidAt)
			assert.Empty(t, h.notifier.receipts)
		})
	}
}

func TestInitiateChecksPaymentFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	buyer := uuid.New()

	stripeOrder := seedOrder(t, h.orders, buyer, enums.PaymentMethodStripe)
	_, err := h.svc.Initiate(ctx, buyer, stripeOrder.ID, InitiateRequest{})
	assert.Equal(t, reasonFlowMismatch, pkgerrors.Reason(err))

	squareOrder := seedOrder(t, h.orders, buyer, enums.PaymentMethodSquare)
	_, err = h.svc.Initiate(ctx, buyer, squareOrder.ID, InitiateRequest{SourceID: "cnon:card"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency), "square is not configured here")

	intent, err := h.svc.CreateWebhookIntent(ctx, buyer, stripeOrder.ID)
	require.NoError(t, err)
	assert.Equal(t, "pi_1_secret", intent.ClientSecret)
}

func TestApplyWebhookEvent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := seedOrder(t, h.orders, uuid.New(), enums.PaymentMethodStripe)

	applied, err := h.svc.ApplyWebhookEvent(ctx, &WebhookEvent{ID: "evt_0", Type: "payment_intent.created"})
	require.NoError(t, err)
	assert.False(t, applied)

	_, err = h.svc.ApplyWebhookEvent(ctx, &WebhookEvent{ID: "evt_bad", Type: "charge.succeeded", Succeeded: true})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	applied, err = h.svc.ApplyWebhookEvent(ctx, &WebhookEvent{
		ID:           "evt_1",
		Type:         "charge.succeeded",
		ChargeID:     "ch_1",
		Succeeded:    true,
		BillingEmail: "payer@example.com",
		AmountCents:  7898,
		Metadata:     map[string]string{pkgstripe.OrderIDMetadataKey: order.ID.String()},
	})
	require.NoError(t, err)
	assert.True(t, applied)

	stored, err := h.orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPaid)
	assert.Equal(t, "ch_1", stored.PaymentResult.ID)
	assert.Equal(t, "payer@example.com", stored.PaymentResult.PayerEmail)
	assert.Equal(t, "78.98", stored.PaymentResult.CapturedAmount.StringFixed(2))
}

func TestPayManualIgnoresReceiptFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.notifier.err = errors.New("smtp down")
	order := seedOrder(t, h.orders, uuid.New(), enums.PaymentMethodCashOnDelivery)

	paid, err := h.svc.PayManual(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)
	assert.Equal(t, enums.PaymentStatusManual.String(), paid.PaymentResult.Status)
	assert.True(t, paid.PaymentResult.CapturedAmount.Equal(order.TotalPrice))

	_, err = h.svc.PayManual(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
