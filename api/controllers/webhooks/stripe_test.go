package webhooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type stubWebhookService struct {
	err       error
	payload   string
	signature string
}

func (s *stubWebhookService) HandleEvent(_ context.Context, payload []byte, signature string) error {
	s.payload = string(payload)
	s.signature = signature
	return s.err
}

func TestStripeWebhookMissingSignature(t *testing.T) {
	svc := &stubWebhookService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	StripeWebhook(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.payload != "" {
		t.Fatalf("service must not be called")
	}
}

func TestStripeWebhookSuccess(t *testing.T) {
	svc := &stubWebhookService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(`{"id":"evt_1"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	resp := httptest.NewRecorder()
	StripeWebhook(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.payload != `{"id":"evt_1"}` || svc.signature != "t=1,v1=abc" {
		t.Fatalf("unexpected forwarding %+v", svc)
	}
}

func TestStripeWebhookFailureTriggersRedelivery(t *testing.T) {
	svc := &stubWebhookService{err: pkgerrors.New(pkgerrors.CodeExternalGateway, "signature mismatch")}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(`{}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=bad")
	resp := httptest.NewRecorder()
	StripeWebhook(svc, nil).ServeHTTP(resp, req)

	if resp.Code < 400 {
		t.Fatalf("expected failure status, got %d", resp.Code)
	}
}

func TestStripeWebhookRejectsOversizedPayload(t *testing.T) {
	svc := &stubWebhookService{}
	body := `{"id":"evt_1","pad":"` + strings.Repeat("x", maxWebhookBody) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(body))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	resp := httptest.NewRecorder()
	StripeWebhook(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "webhook payload too large") {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
	if svc.payload != "" || svc.signature != "" {
		t.Fatalf("service must not see a truncated payload")
	}
}

func TestStripeWebhookAcceptsPayloadAtLimit(t *testing.T) {
	svc := &stubWebhookService{}
	body := strings.Repeat("x", maxWebhookBody)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(body))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	resp := httptest.NewRecorder()
	StripeWebhook(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if len(svc.payload) != maxWebhookBody {
		t.Fatalf("expected full payload, got %d bytes", len(svc.payload))
	}
}
