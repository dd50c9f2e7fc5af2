package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// ShippingAddress is the address a user saves and an order snapshots.
type ShippingAddress struct {
	FullName      string `json:"fullName" validate:"required,max=200"`
	StreetAddress string `json:"streetAddress" validate:"required,max=300"`
	City          string `json:"city" validate:"required,max=120"`
	PostalCode    string `json:"postalCode" validate:"required,max=32"`
	Country       string `json:"country" validate:"required,max=120"`
}

// IsComplete reports whether every field carries a non-blank value.
func (a ShippingAddress) IsComplete() bool {
	for _, v := range []string{a.FullName, a.StreetAddress, a.City, a.PostalCode, a.Country} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// Value stores the address as a JSON document.
func (a ShippingAddress) Value() (driver.Value, error) {
	return jsonValue(a)
}

// Scan decodes the JSON document.
func (a *ShippingAddress) Scan(value interface{}) error {
	if value == nil {
		*a = ShippingAddress{}
		return nil
	}
	return jsonScan("shipping address", value, a)
}

func jsonValue(v any) (driver.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func jsonScan(name string, value interface{}, dest any) error {
	raw, ok := toBytes(value)
	if !ok {
		return fmt.Errorf("%s: unsupported scan type %T", name, value)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func toBytes(value interface{}) ([]byte, bool) {
	switch v := value.(type) {
	case string:
		return []byte(v), true
	case []byte:
		return v, true
	case fmt.Stringer:
		return []byte(v.String()), true
	default:
		return nil, false
	}
}
