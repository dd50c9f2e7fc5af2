package stripe

import (
	"context"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func TestNewClientValidatesKeysAgainstEnvironment(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name    string
		cfg     config.StripeConfig
		wantErr bool
	}{
		{"test key in test env", config.StripeConfig{APIKey: "sk_test_123", Secret: "whsec_1", Env: "test"}, false},
		{"live key in test env", config.StripeConfig{APIKey: "sk_live_123", Secret: "whsec_1", Env: "test"}, true},
		{"live key in live env", config.StripeConfig{APIKey: "rk_live_123", Secret: "whsec_1", Env: "LIVE"}, false},
		{"unknown env", config.StripeConfig{APIKey: "sk_test_123", Secret: "whsec_1", Env: "staging"}, true},
		{"missing key", config.StripeConfig{Secret: "whsec_1"}, true},
		{"missing secret", config.StripeConfig{APIKey: "sk_test_123"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, err := NewClient(ctx, tc.cfg, nil)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if client.SigningSecret() != "whsec_1" {
				t.Fatalf("unexpected signing secret %q", client.SigningSecret())
			}
			if client.Environment() != "test" && client.Environment() != "live" {
				t.Fatalf("unexpected env %q", client.Environment())
			}
			if client.Currency() != "usd" {
				t.Fatalf("expected default currency usd, got %q", client.Currency())
			}
		})
	}
}

func TestCreatePaymentIntentValidatesInput(t *testing.T) {
	client := &Client{currency: "usd"}
	if _, err := client.CreatePaymentIntent(context.Background(), "", 100); err == nil {
		t.Fatal("expected order id error")
	}
	if _, err := client.CreatePaymentIntent(context.Background(), "order-1", 0); err == nil {
		t.Fatal("expected amount error")
	}

	var nilClient *Client
	if _, err := nilClient.CreatePaymentIntent(context.Background(), "order-1", 100); err == nil {
		t.Fatal("expected nil client error")
	}
}
