// Package pricing computes booking quotes. It performs no I/O.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/calendar"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/money"
)

const (
	WeeklyThresholdNights  = 7
	MonthlyThresholdNights = 28

	// MaxNights caps any single stay, whatever the property allows.
	MaxNights = 365
)

var (
	ErrInvalidDateRange = apperror.Validation("check-out must be after check-in")
	ErrStayTooLong      = apperror.Validation("stay cannot be longer than 365 nights")
)

// Rules is the pricing-relevant part of a property.
type Rules struct {
	BasePrice       money.Amount
	WeekendPrice    *money.Amount
	CustomPricing   map[calendar.Date]money.Amount
	CleaningFee     money.Amount
	WeeklyDiscount  *decimal.Decimal // percent, 0-100
	MonthlyDiscount *decimal.Decimal // percent, 0-100
}

// Guests is the party size of a stay. Capacity is enforced by callers, not by the engine.
type Guests struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Infants  int `json:"infants"`
}

// Occupants counts the guests that take up capacity. Infants do not.
func (g Guests) Occupants() int {
	return g.Adults + g.Children
}

// Breakdown is a rounded quote.
type Breakdown struct {
	NightlyRate money.Amount `json:"nightly_rate"`
	Nights      int          `json:"nights"`
	Subtotal    money.Amount `json:"subtotal"`
	CleaningFee money.Amount `json:"cleaning_fee"`
	ServiceFee  money.Amount `json:"service_fee"`
	Taxes       money.Amount `json:"taxes"`
	Total       money.Amount `json:"total"`
}

// Engine holds the platform-wide rates. ServiceFeeRate and TaxRate are fractions (0.12 = 12%).
type Engine struct {
	ServiceFeeRate decimal.Decimal
	TaxRate        decimal.Decimal
}

// NewEngine creates an Engine with the given rates.
func NewEngine(serviceFeeRate, taxRate decimal.Decimal) Engine {
	return Engine{ServiceFeeRate: serviceFeeRate, TaxRate: taxRate}
}

// NightPrice is the price of the night starting on d.
// A custom price wins over everything, then the weekend price on weekend nights, then the base price.
func (r Rules) NightPrice(d calendar.Date) money.Amount {
	if p, ok := r.CustomPricing[d]; ok {
		return p
	}
	if r.WeekendPrice != nil && d.IsWeekend() {
		return *r.WeekendPrice
	}
	return r.BasePrice
}

// discountFor returns the single stay-length discount that applies, monthly first.
func (r Rules) discountFor(nights int) (decimal.Decimal, bool) {
	if nights >= MonthlyThresholdNights && r.MonthlyDiscount != nil {
		return *r.MonthlyDiscount, true
	}
	if nights >= WeeklyThresholdNights && r.WeeklyDiscount != nil {
		return *r.WeeklyDiscount, true
	}
	return decimal.Zero, false
}

// Quote prices the stay [checkIn, checkOut). All intermediate values stay exact;
// subtotal, service fee, taxes and total are each rounded half-up to cents once.
func (e Engine) Quote(rules Rules, checkIn, checkOut calendar.Date, _ Guests) (Breakdown, error) {
	stay, err := calendar.NewRange(checkIn, checkOut)
	if err != nil {
		return Breakdown{}, ErrInvalidDateRange
	}
	if stay.Nights() > MaxNights {
		return Breakdown{}, ErrStayTooLong
	}

	var raw money.Amount
	for _, d := range stay.Dates() {
		raw = raw.Add(rules.NightPrice(d))
	}

	nights := stay.Nights()
	subtotal := raw.Decimal()
	if pct, ok := rules.discountFor(nights); ok {
		subtotal = subtotal.Mul(decimal.NewFromInt(1).Sub(money.Fraction(pct)))
	}

	cleaning := rules.CleaningFee.Decimal()
	serviceFee := subtotal.Mul(e.ServiceFeeRate)
	taxes := subtotal.Add(cleaning).Add(serviceFee).Mul(e.TaxRate)
	total := subtotal.Add(cleaning).Add(serviceFee).Add(taxes)

	return Breakdown{
		NightlyRate: rules.BasePrice,
		Nights:      nights,
		Subtotal:    money.FromDecimal(subtotal),
		CleaningFee: rules.CleaningFee,
		ServiceFee:  money.FromDecimal(serviceFee),
		Taxes:       money.FromDecimal(taxes),
		Total:       money.FromDecimal(total),
	}, nil
}
