package payments

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	sq "github.com/square/square-go-sdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/paypal"
	"github.com/angelmondragon/storefront-backend/pkg/square"
)

const testSigningSecret = "whsec_test_secret"

type stubStripeAPI struct{}

func (stubStripeAPI) CreatePaymentIntent(_ context.Context, orderID string, amountCents int64) (*stripe.PaymentIntent, error) {
	return &stripe.PaymentIntent{ID: "pi_" + orderID[:8], ClientSecret: "secret", Amount: amountCents}, nil
}

func (stubStripeAPI) SigningSecret() string { return testSigningSecret }

func signedPayload(t *testing.T, payload string) (string, []byte) {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testSigningSecret,
		Timestamp: time.Now(),
	})
	return signed.Header, signed.Payload
}

func chargeEvent(orderID uuid.UUID, eventType string, paid bool) string {
	status := "succeeded"
	if !paid {
		status = "failed"
	}
	return fmt.Sprintf(`{
  "id": "evt_123",
  "object": "event",
  "api_version": %q,
  "type": %q,
  "data": {
    "object": {
      "id": "ch_123",
      "object": "charge",
      "amount": 7898,
      "paid": %t,
      "status": %q,
      "billing_details": {"email": "payer@example.com"},
      "metadata": {"orderId": %q}
    }
  }
}`, stripe.APIVersion, eventType, paid, status, orderID.String())
}

func TestStripeGatewayVerifyWebhook(t *testing.T) {
	gw, err := NewStripeGateway(stubStripeAPI{})
	require.NoError(t, err)
	orderID := uuid.New()

	header, payload := signedPayload(t, chargeEvent(orderID, "charge.succeeded", true))
	event, err := gw.VerifyWebhook(payload, header)
	require.NoError(t, err)
	assert.Equal(t, "evt_123", event.ID)
	assert.Equal(t, "ch_123", event.ChargeID)
	assert.True(t, event.Succeeded)
	assert.Equal(t, "payer@example.com", event.BillingEmail)
	assert.EqualValues(t, 7898, event.AmountCents)

	extracted, err := gw.ExtractOrderID(event)
	require.NoError(t, err)
	assert.Equal(t, orderID, extracted)

	header, payload = signedPayload(t, chargeEvent(orderID, "charge.failed", false))
	event, err = gw.VerifyWebhook(payload, header)
	require.NoError(t, err)
	assert.False(t, event.Succeeded)

	_, err = gw.VerifyWebhook(payload, "t=1,v1=deadbeef")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeExternalGateway))

	_, err = gw.VerifyWebhook(payload, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestStripeGatewayCreateIntent(t *testing.T) {
	gw, err := NewStripeGateway(stubStripeAPI{})
	require.NoError(t, err)

	intent, err := gw.CreateIntent(context.Background(), IntentRequest{OrderID: uuid.New(), Amount: decimal.RequireFromString("78.98")})
	require.NoError(t, err)
	assert.Equal(t, "secret", intent.ClientSecret)
}

type stubPayPalAPI struct {
	created string
	order   *paypal.Order
}

func (s *stubPayPalAPI) CreateOrder(_ context.Context, _ string, value string) (*paypal.Order, error) {
	s.created = value
	return &paypal.Order{ID: "PP-1", Status: "CREATED"}, nil
}

func (s *stubPayPalAPI) CaptureOrder(context.Context, string) (*paypal.Order, error) {
	return s.order, nil
}

func TestPayPalGateway(t *testing.T) {
	api := &stubPayPalAPI{order: &paypal.Order{
		ID:     "PP-1",
		Status: "COMPLETED",
		Payer:  &paypal.Payer{EmailAddress: "payer@example.com"},
	}}
	gw, err := NewPayPalGateway(api)
	require.NoError(t, err)

	intent, err := gw.CreateIntent(context.Background(), IntentRequest{OrderID: uuid.New(), Amount: decimal.RequireFromString("78.9")})
	require.NoError(t, err)
	assert.Equal(t, "PP-1", intent.ID)
	assert.Equal(t, "78.90", api.created)

	result, err := gw.CaptureAndVerify(context.Background(), "PP-1")
	require.NoError(t, err)
	assert.True(t, result.Completed())
	assert.Equal(t, "payer@example.com", result.PayerEmail)
	assert.True(t, result.CapturedAmount.IsZero())
}

type stubSquareAPI struct {
	params  square.PaymentCreateParams
	payment *sq.Payment
}

func (s *stubSquareAPI) CreateDelayedPayment(_ context.Context, params square.PaymentCreateParams) (*sq.Payment, error) {
	s.params = params
	return s.payment, nil
}

func (s *stubSquareAPI) CompletePayment(context.Context, string) (*sq.Payment, error) {
	return s.payment, nil
}

func TestSquareGateway(t *testing.T) {
	id, status, email := "sq_pay_1", "COMPLETED", "buyer@example.com"
	amount := int64(7898)
	api := &stubSquareAPI{payment: &sq.Payment{
		ID:                &id,
		Status:            &status,
		BuyerEmailAddress: &email,
		AmountMoney:       &sq.Money{Amount: &amount},
	}}
	gw, err := NewSquareGateway(api)
	require.NoError(t, err)

	_, err = gw.CreateIntent(context.Background(), IntentRequest{OrderID: uuid.New(), Amount: decimal.RequireFromString("78.98")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "source id required")

	intent, err := gw.CreateIntent(context.Background(), IntentRequest{OrderID: uuid.New(), Amount: decimal.RequireFromString("78.98"), SourceID: "cnon:card-nonce-ok"})
	require.NoError(t, err)
	assert.Equal(t, "sq_pay_1", intent.ID)
	assert.EqualValues(t, 7898, api.params.AmountCents)

	result, err := gw.CaptureAndVerify(context.Background(), "sq_pay_1")
	require.NoError(t, err)
	assert.True(t, result.Completed())
	assert.Equal(t, "78.98", result.CapturedAmount.StringFixed(2))
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &fakeCaptureGateway{provider: ProviderPayPal, captureErr: pkgerrors.New(pkgerrors.CodeExternalGateway, "boom")}
	gw := WithBreaker(inner, config.BreakerConfig{ConsecutiveFailures: 2, OpenTimeout: time.Minute}, nil)

	for i := 0; i < 2; i++ {
		_, err := gw.CaptureAndVerify(context.Background(), "PP-1")
		require.Error(t, err)
	}
	require.Len(t, inner.captured, 2)

	_, err := gw.CaptureAndVerify(context.Background(), "PP-1")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeExternalGateway))
	assert.Len(t, inner.captured, 2, "open breaker must not reach the provider")
}

func TestBreakerIgnoresCallerErrors(t *testing.T) {
	inner := &fakeCaptureGateway{provider: ProviderSquare, createErr: pkgerrors.New(pkgerrors.CodeValidation, "bad source")}
	gw := WithBreaker(inner, config.BreakerConfig{ConsecutiveFailures: 1, OpenTimeout: time.Minute}, nil)

	for i := 0; i < 3; i++ {
		_, err := gw.CreateIntent(context.Background(), IntentRequest{})
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	}

	inner.createErr = nil
	inner.intentID = "sq_1"
	intent, err := gw.CreateIntent(context.Background(), IntentRequest{})
	require.NoError(t, err)
	assert.Equal(t, "sq_1", intent.ID)
}

func TestBreakerCountsProviderRejections(t *testing.T) {
	var captures int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/oauth2/token" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
			return
		}
		captures++
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"name":"UNPROCESSABLE_ENTITY","message":"INTERNAL DEBUG: instrument declined, acct 12345"}`))
	}))
	t.Cleanup(srv.Close)

	client, err := paypal.NewClient(context.Background(), config.PayPalConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		BaseURL:      srv.URL,
		Timeout:      5 * time.Second,
	}, nil)
	require.NoError(t, err)
	inner, err := NewPayPalGateway(client)
	require.NoError(t, err)
	gw := WithBreaker(inner, config.BreakerConfig{ConsecutiveFailures: 2, OpenTimeout: time.Minute}, nil)

	for i := 0; i < 2; i++ {
		_, err := gw.CaptureAndVerify(context.Background(), "PP-1")
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeExternalGateway))
		assert.NotContains(t, err.Error(), "INTERNAL DEBUG")
	}
	_, err = gw.CaptureAndVerify(context.Background(), "PP-1")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeExternalGateway))
	assert.Equal(t, 2, captures, "declines must open the breaker")
}
