// Package money holds the rounding and conversion rules for monetary amounts.
// Every amount exposed to callers is rounded half-up to two decimal places.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Round rounds to two decimals, halves away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Percent returns d * pct / 100 without rounding.
func Percent(d, pct decimal.Decimal) decimal.Decimal {
	return d.Mul(pct).Div(hundred)
}

// ApplyDiscount returns d reduced by pct percent, unrounded.
func ApplyDiscount(d, pct decimal.Decimal) decimal.Decimal {
	return d.Sub(Percent(d, pct))
}

// ToCents converts a rounded amount into minor units.
func ToCents(d decimal.Decimal) int64 {
	return Round(d).Mul(hundred).IntPart()
}

// FromCents converts minor units into a decimal amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// WithinTolerance reports whether |a-b| <= tol.
func WithinTolerance(a, b, tol decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tol)
}

// Parse parses a decimal string and rejects negatives.
func Parse(value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", value, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("amount %q must not be negative", value)
	}
	return d, nil
}
