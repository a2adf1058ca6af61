// Package money normalizes client-supplied amounts into the fixed-point
// representation the ledger stores: decimal values with at most two
// fractional digits, strictly greater than zero.
package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount indicates an amount that is not numeric, not positive,
// or carries more than two fractional digits.
var ErrInvalidAmount = errors.New("invalid amount")

// Parse converts a raw amount string into a validated decimal. Validation
// happens before any balance is touched, so callers can return the error
// directly without rollback concerns.
func Parse(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.Exponent() < -2 {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// Format renders an amount with exactly two fractional digits for responses.
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}
