// Package paypal is a small client for the PayPal Orders v2 API covering the
// create-then-capture flow.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	sandboxEnv = "sandbox"
	liveEnv    = "live"

	// StatusCompleted is the order and capture status PayPal reports once funds moved.
	StatusCompleted = "COMPLETED"
)

var (
	errClientIDRequired = errors.New("paypal client id is required")
	errSecretRequired   = errors.New("paypal client secret is required")
	errInvalidEnv       = fmt.Errorf("paypal environment must be %q or %q", sandboxEnv, liveEnv)
)

var baseURLs = map[string]string{
	sandboxEnv: "https://api-m.sandbox.paypal.com",
	liveEnv:    "https://api-m.paypal.com",
}

// Client calls the Orders API with an OAuth2 client-credentials token.
type Client struct {
	http     *http.Client
	baseURL  string
	currency string
	logger   *logger.Logger
}

// NewClient validates credentials and builds a token-refreshing HTTP client.
func NewClient(ctx context.Context, cfg config.PayPalConfig, logg *logger.Logger) (*Client, error) {
	env := cfg.Environment()
	baseURL, ok := baseURLs[env]
	if !ok {
		return nil, errInvalidEnv
	}
	if override := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); override != "" {
		baseURL = override
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errClientIDRequired
	}
	if strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, errSecretRequired
	}

	base := &http.Client{Timeout: cfg.Timeout}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	creds := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     baseURL + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	httpClient := creds.Client(tokenCtx)
	httpClient.Timeout = cfg.Timeout

	currency := strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = "USD"
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "env", env), "paypal client initialized")
	}

	return &Client{
		http:     httpClient,
		baseURL:  baseURL,
		currency: currency,
		logger:   logg,
	}, nil
}

type amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnit struct {
	ReferenceID string  `json:"reference_id,omitempty"`
	CustomID    string  `json:"custom_id,omitempty"`
	Amount      *amount `json:"amount,omitempty"`
	Payments    *struct {
		Captures []Capture `json:"captures"`
	} `json:"payments,omitempty"`
}

type createOrderRequest struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
}

// Order is the subset of the PayPal order resource the storefront reads.
type Order struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	Payer         *Payer         `json:"payer,omitempty"`
	PurchaseUnits []purchaseUnit `json:"purchase_units,omitempty"`
}

type Payer struct {
	EmailAddress string `json:"email_address"`
}

// Capture is a single settled payment on an order.
type Capture struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount amount `json:"amount"`
}

// PayerEmail returns the payer email or "".
func (o *Order) PayerEmail() string {
	if o == nil || o.Payer == nil {
		return ""
	}
	return o.Payer.EmailAddress
}

// CapturedValue returns the decimal string of the first capture, or "".
func (o *Order) CapturedValue() string {
	if o == nil {
		return ""
	}
	for _, unit := range o.PurchaseUnits {
		if unit.Payments == nil {
			continue
		}
		for _, capture := range unit.Payments.Captures {
			return capture.Amount.Value
		}
	}
	return ""
}

// CreateOrder opens a CAPTURE-intent order for value (a 2-place decimal string).
func (c *Client) CreateOrder(ctx context.Context, referenceID, value string) (*Order, error) {
	body := createOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			ReferenceID: referenceID,
			CustomID:    referenceID,
			Amount:      &amount{CurrencyCode: c.currency, Value: value},
		}},
	}
	var out Order
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CaptureOrder captures the approved order.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "paypal order id is required")
	}
	var out Order
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders/"+orderID+"/capture", struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type apiError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	DebugID string `json:"debug_id"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode paypal request")
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build paypal request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeExternalGateway, err, fmt.Sprintf("paypal %s %s", method, path))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeExternalGateway, err, "read paypal response")
	}

	if resp.StatusCode >= 300 {
		var apiErr apiError
		_ = json.Unmarshal(raw, &apiErr)
		if c.logger != nil {
			logCtx := c.logger.WithFields(ctx, map[string]any{
				"status":   resp.StatusCode,
				"name":     apiErr.Name,
				"message":  apiErr.Message,
				"debug_id": apiErr.DebugID,
			})
			c.logger.Warn(logCtx, "paypal request failed")
		}
		// provider text stays in the log; callers only see the gateway code
		return pkgerrors.Wrap(pkgerrors.CodeExternalGateway,
			fmt.Errorf("paypal %s %s returned status %d", method, path, resp.StatusCode),
			"paypal request failed")
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeExternalGateway, err, "decode paypal response")
	}
	return nil
}
