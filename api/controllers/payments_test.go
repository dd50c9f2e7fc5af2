package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/paypal"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type stubPayments struct {
	intent      *payments.IntentDTO
	order       *orders.OrderDTO
	err         error
	lastInit    payments.InitiateRequest
	lastClaimed string
	manualCalls int
}

func (s *stubPayments) Initiate(_ context.Context, _, _ uuid.UUID, req payments.InitiateRequest) (*payments.IntentDTO, error) {
	s.lastInit = req
	return s.intent, s.err
}

func (s *stubPayments) Confirm(_ context.Context, _, _ uuid.UUID, claimed string) (*orders.OrderDTO, error) {
	s.lastClaimed = claimed
	return s.order, s.err
}

func (s *stubPayments) CreateWebhookIntent(context.Context, uuid.UUID, uuid.UUID) (*payments.IntentDTO, error) {
	return s.intent, s.err
}

func (s *stubPayments) ApplyWebhookEvent(context.Context, *payments.WebhookEvent) (bool, error) {
	return true, s.err
}

func (s *stubPayments) PayManual(context.Context, uuid.UUID) (*orders.OrderDTO, error) {
	s.manualCalls++
	return s.order, s.err
}

func orderRequest(method, body string, orderID uuid.UUID) *http.Request {
	params := map[string]string{"orderId": orderID.String()}
	req := newRequest(method, "/", strings.NewReader(body), params)
	return asUser(req, uuid.New(), "customer")
}

func TestPaymentInitiateWithoutBody(t *testing.T) {
	orderID := uuid.New()
	svc := &stubPayments{intent: &payments.IntentDTO{OrderID: orderID, Provider: payments.ProviderPayPal, IntentID: "PAYPAL-1"}}

	resp := httptest.NewRecorder()
	PaymentInitiate(svc, nil).ServeHTTP(resp, orderRequest(http.MethodPost, "", orderID))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	var out payments.IntentDTO
	decodeData(t, resp, &out)
	if out.IntentID != "PAYPAL-1" {
		t.Fatalf("unexpected intent %+v", out)
	}
}

func TestPaymentInitiateForwardsSource(t *testing.T) {
	svc := &stubPayments{intent: &payments.IntentDTO{}}
	resp := httptest.NewRecorder()
	PaymentInitiate(svc, nil).ServeHTTP(resp, orderRequest(http.MethodPost, `{"sourceId":"cnon:card-nonce-ok"}`, uuid.New()))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if svc.lastInit.SourceID != "cnon:card-nonce-ok" {
		t.Fatalf("source not forwarded: %+v", svc.lastInit)
	}
}

func TestPaymentConfirmRequiresIntentID(t *testing.T) {
	svc := &stubPayments{}
	resp := httptest.NewRecorder()
	PaymentConfirm(svc, nil).ServeHTTP(resp, orderRequest(http.MethodPost, `{}`, uuid.New()))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.lastClaimed != "" {
		t.Fatalf("service must not be called")
	}
}

func TestPaymentConfirmGatewayFailureIsGeneric(t *testing.T) {
	svc := &stubPayments{err: pkgerrors.New(pkgerrors.CodeExternalGateway, "paypal capture returned DECLINED")}
	resp := httptest.NewRecorder()
	PaymentConfirm(svc, nil).ServeHTTP(resp, orderRequest(http.MethodPost, `{"intentId":" PAYPAL-1 "}`, uuid.New()))

	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 got %d", resp.Code)
	}
	if strings.Contains(resp.Body.String(), "DECLINED") {
		t.Fatalf("gateway detail leaked: %s", resp.Body.String())
	}
	if svc.lastClaimed != "PAYPAL-1" {
		t.Fatalf("expected trimmed intent id, got %q", svc.lastClaimed)
	}
}

func TestPaymentConfirmProviderRejectionIsBadGateway(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/oauth2/token" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
			return
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"name":"UNPROCESSABLE_ENTITY","message":"INTERNAL DEBUG: instrument declined, acct 12345"}`))
	}))
	defer provider.Close()

	client, err := paypal.NewClient(context.Background(), config.PayPalConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		BaseURL:      provider.URL,
		Timeout:      5 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("paypal client: %v", err)
	}
	_, captureErr := client.CaptureOrder(context.Background(), "PAYPAL-1")
	if captureErr == nil {
		t.Fatalf("expected capture failure")
	}

	svc := &stubPayments{err: captureErr}
	resp := httptest.NewRecorder()
	PaymentConfirm(svc, nil).ServeHTTP(resp, orderRequest(http.MethodPost, `{"intentId":"PAYPAL-1"}`, uuid.New()))

	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 got %d", resp.Code)
	}
	raw := resp.Body.String()
	if strings.Contains(raw, "INTERNAL DEBUG") || strings.Contains(raw, "acct") {
		t.Fatalf("provider detail leaked: %s", raw)
	}
	var body types.ErrorEnvelope
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Message != "payment provider error" {
		t.Fatalf("unexpected message %q", body.Error.Message)
	}
}

func TestPaymentConfirmAlreadyPaid(t *testing.T) {
	svc := &stubPayments{err: orders.AlreadyPaid()}
	resp := httptest.NewRecorder()
	PaymentConfirm(svc, nil).ServeHTTP(resp, orderRequest(http.MethodPost, `{"intentId":"PAYPAL-1"}`, uuid.New()))

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestPaymentStripeIntent(t *testing.T) {
	svc := &stubPayments{intent: &payments.IntentDTO{IntentID: "pi_1", ClientSecret: "pi_1_secret"}}
	resp := httptest.NewRecorder()
	PaymentStripeIntent(svc, nil).ServeHTTP(resp, orderRequest(http.MethodPost, "", uuid.New()))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	var out payments.IntentDTO
	decodeData(t, resp, &out)
	if out.ClientSecret != "pi_1_secret" {
		t.Fatalf("unexpected intent %+v", out)
	}
}
