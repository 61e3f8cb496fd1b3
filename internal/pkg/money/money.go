// Package money holds amounts as integer minor units (cents).
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount  = errors.New("invalid money amount")
	ErrTooManyDecimal = errors.New("money amount has more than 2 decimal places")
	ErrNegativeAmount = errors.New("money amount must not be negative")
)

// Amount is a count of cents.
type Amount int64

// Cents builds an Amount from minor units.
func Cents(c int64) Amount { return Amount(c) }

// FromUnits builds an Amount from whole currency units.
func FromUnits(u int64) Amount { return Amount(u * 100) }

// FromDecimal rounds d half-up to cents. This is the only place a fractional cent is resolved.
func FromDecimal(d decimal.Decimal) Amount {
	return Amount(d.Round(2).Shift(2).IntPart())
}

// Parse reads a decimal string such as "100", "100.5" or "100.50".
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.Exponent() < -2 && !d.Equal(d.Truncate(2)) {
		return 0, ErrTooManyDecimal
	}
	if d.IsNegative() {
		return 0, ErrNegativeAmount
	}
	return FromDecimal(d), nil
}

// Decimal returns the exact decimal value of a.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -2)
}

func (a Amount) Cents() int64 { return int64(a) }

func (a Amount) Add(b Amount) Amount { return a + b }

// Mul multiplies by a whole count, e.g. nights.
func (a Amount) Mul(n int64) Amount { return a * Amount(n) }

func (a Amount) String() string {
	return a.Decimal().StringFixed(2)
}

// MarshalJSON writes a JSON number with exactly two decimals, e.g. 295.92.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (a *Amount) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
