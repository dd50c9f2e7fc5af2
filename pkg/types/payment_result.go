package types

import (
	"database/sql/driver"

	"github.com/shopspring/decimal"
)

// PaymentResult records how an order was settled. A pending result holds only
// the gateway intent id until capture succeeds.
type PaymentResult struct {
	ID             string          `json:"id"`
	Status         string          `json:"status"`
	PayerEmail     string          `json:"payerEmail,omitempty"`
	CapturedAmount decimal.Decimal `json:"capturedAmount"`
	Provider       string          `json:"provider,omitempty"`
}

// Value stores the result as a JSON document.
func (p PaymentResult) Value() (driver.Value, error) {
	return jsonValue(p)
}

// Scan decodes the JSON document.
func (p *PaymentResult) Scan(value interface{}) error {
	if value == nil {
		*p = PaymentResult{}
		return nil
	}
	return jsonScan("payment result", value, p)
}
