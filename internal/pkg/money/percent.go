package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrPercentOutOfRange = errors.New("percent must be between 0 and 100")

var hundred = decimal.NewFromInt(100)

// ValidatePercent checks a discount percentage is within [0, 100].
func ValidatePercent(p decimal.Decimal) error {
	if p.IsNegative() || p.GreaterThan(hundred) {
		return ErrPercentOutOfRange
	}
	return nil
}

// Fraction converts a percentage to a multiplier fraction, e.g. 10 -> 0.10. Exact.
func Fraction(p decimal.Decimal) decimal.Decimal {
	return p.Shift(-2)
}
