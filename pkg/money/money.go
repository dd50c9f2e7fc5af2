// Package money converts decimal amounts to the forms payment providers and
// receipts need.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ToMinorUnits converts an amount into integer cents after rounding to 2 places.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Round(2).Shift(2).IntPart()
}

// FromMinorUnits converts integer cents back into a 2-place decimal.
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// Format renders amount with the currency symbol for code, e.g. "$ 78.98".
func Format(amount decimal.Decimal, code string) (string, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return "", fmt.Errorf("parse currency %q: %w", code, err)
	}
	f, _ := amount.Round(2).Float64()
	p := message.NewPrinter(language.English)
	return p.Sprint(currency.Symbol(unit.Amount(f))), nil
}
