package property

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/calendar"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/money"
	"github.com/nekogravitycat/stay-booking-backend/internal/pricing"
)

var (
	ErrNotFound           = apperror.NotFound("property not found")
	ErrPermissionDenied   = apperror.Forbidden("only the host can manage this property")
	ErrTitleRequired      = apperror.Validation("title is required")
	ErrInvalidBasePrice   = apperror.Validation("base price must be greater than zero")
	ErrInvalidMaxGuests   = apperror.Validation("max guests must be at least 1")
	ErrInvalidMinimumStay = apperror.Validation("minimum stay must be at least 1 night")
	ErrInvalidMaximumStay = apperror.Validation("maximum stay must not be shorter than minimum stay")
	ErrInvalidDiscount    = apperror.Validation("discounts must be between 0 and 100 percent")
	ErrNoDates            = apperror.Validation("at least one date is required")
)

// Property is a rentable listing together with its pricing and calendar rules.
type Property struct {
	ID          string
	HostID      string
	Title       string
	Description string

	BasePrice       money.Amount
	WeekendPrice    *money.Amount
	CustomPricing   map[calendar.Date]money.Amount
	CleaningFee     money.Amount
	WeeklyDiscount  *decimal.Decimal
	MonthlyDiscount *decimal.Decimal

	MaxGuests   int
	MinimumStay int
	MaximumStay *int
	InstantBook bool

	// Sorted ascending.
	BlockedDates []calendar.Date

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Filter defines options for listing properties.
type Filter struct {
	HostID   string
	Page     int
	PageSize int
}

// PricingRules extracts what the pricing engine needs.
func (p *Property) PricingRules() pricing.Rules {
	return pricing.Rules{
		BasePrice:       p.BasePrice,
		WeekendPrice:    p.WeekendPrice,
		CustomPricing:   p.CustomPricing,
		CleaningFee:     p.CleaningFee,
		WeeklyDiscount:  p.WeeklyDiscount,
		MonthlyDiscount: p.MonthlyDiscount,
	}
}

// IsHost reports whether userID owns the property.
func (p *Property) IsHost(userID string) bool {
	return userID != "" && p.HostID == userID
}

// HasBlockedDateIn reports whether the host closed any night of the stay.
func (p *Property) HasBlockedDateIn(stay calendar.Range) bool {
	i := sort.Search(len(p.BlockedDates), func(i int) bool {
		return !p.BlockedDates[i].Before(stay.CheckIn)
	})
	return i < len(p.BlockedDates) && p.BlockedDates[i].Before(stay.CheckOut)
}

// Validate checks the listing rules that must hold before it is stored.
func (p *Property) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return ErrTitleRequired
	}
	if p.BasePrice <= 0 {
		return ErrInvalidBasePrice
	}
	if p.MaxGuests < 1 {
		return ErrInvalidMaxGuests
	}
	if p.MinimumStay < 1 {
		return ErrInvalidMinimumStay
	}
	if p.MaximumStay != nil && *p.MaximumStay < p.MinimumStay {
		return ErrInvalidMaximumStay
	}
	for _, d := range []*decimal.Decimal{p.WeeklyDiscount, p.MonthlyDiscount} {
		if d != nil && money.ValidatePercent(*d) != nil {
			return ErrInvalidDiscount
		}
	}
	return nil
}

func sortDates(dates []calendar.Date) {
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
}
