package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 code supported by the ledger.
type Currency string

const (
	BRL Currency = "BRL"
	USD Currency = "USD"
	EUR Currency = "EUR"
	XAF Currency = "XAF"
)

// ErrUnknownCurrency is returned when a code is not part of the supported set.
var ErrUnknownCurrency = errors.New("unknown currency")

// minor units per currency
var scales = map[Currency]int32{
	BRL: 2,
	USD: 2,
	EUR: 2,
	XAF: 0,
}

// ParseCurrency validates a currency code at the boundary. Codes are case-insensitive.
func ParseCurrency(code string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}
	return c, nil
}

// Valid reports whether c belongs to the supported set.
func (c Currency) Valid() bool {
	_, ok := scales[c]
	return ok
}

// Scale is the number of fractional digits the currency allows.
func (c Currency) Scale() int32 {
	return scales[c]
}

// Accepts reports whether amount is representable without rounding in c.
func (c Currency) Accepts(amount decimal.Decimal) bool {
	return amount.Equal(amount.Round(c.Scale()))
}

// Format renders amount with exactly Scale fractional digits.
func (c Currency) Format(amount decimal.Decimal) string {
	return amount.StringFixed(c.Scale())
}

func (c Currency) String() string {
	return string(c)
}
