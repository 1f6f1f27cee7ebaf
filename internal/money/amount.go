package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount reads an exact decimal amount. Floats never enter the ledger.
func ParseAmount(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	return d, nil
}

// MustAmount is ParseAmount for literals; it panics on malformed input.
func MustAmount(raw string) decimal.Decimal {
	return decimal.RequireFromString(raw)
}
