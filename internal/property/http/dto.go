package http

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/calendar"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/money"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/stay-booking-backend/internal/property"
)

// ListPropertiesRequest defines query parameters for listing properties.
type ListPropertiesRequest struct {
	request.ListParams
	HostID string `form:"host_id" binding:"omitempty,uuid"`
}

type CustomPrice struct {
	Date  calendar.Date `json:"date"`
	Price money.Amount  `json:"price"`
}

type PropertyResponse struct {
	ID              string           `json:"id"`
	HostID          string           `json:"host_id"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	BasePrice       money.Amount     `json:"base_price"`
	WeekendPrice    *money.Amount    `json:"weekend_price"`
	CleaningFee     money.Amount     `json:"cleaning_fee"`
	WeeklyDiscount  *decimal.Decimal `json:"weekly_discount"`
	MonthlyDiscount *decimal.Decimal `json:"monthly_discount"`
	CustomPricing   []CustomPrice    `json:"custom_pricing"`
	BlockedDates    []calendar.Date  `json:"blocked_dates"`
	MaxGuests       int              `json:"max_guests"`
	MinimumStay     int              `json:"minimum_stay"`
	MaximumStay     *int             `json:"maximum_stay"`
	InstantBook     bool             `json:"instant_book"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func NewPropertyResponse(p *property.Property) PropertyResponse {
	custom := make([]CustomPrice, 0, len(p.CustomPricing))
	for d, price := range p.CustomPricing {
		custom = append(custom, CustomPrice{Date: d, Price: price})
	}
	sort.Slice(custom, func(i, j int) bool { return custom[i].Date.Before(custom[j].Date) })

	blocked := p.BlockedDates
	if blocked == nil {
		blocked = []calendar.Date{}
	}

	return PropertyResponse{
		ID:              p.ID,
		HostID:          p.HostID,
		Title:           p.Title,
		Description:     p.Description,
		BasePrice:       p.BasePrice,
		WeekendPrice:    p.WeekendPrice,
		CleaningFee:     p.CleaningFee,
		WeeklyDiscount:  p.WeeklyDiscount,
		MonthlyDiscount: p.MonthlyDiscount,
		CustomPricing:   custom,
		BlockedDates:    blocked,
		MaxGuests:       p.MaxGuests,
		MinimumStay:     p.MinimumStay,
		MaximumStay:     p.MaximumStay,
		InstantBook:     p.InstantBook,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

type CreatePropertyRequest struct {
	Title           string           `json:"title" binding:"required"`
	Description     string           `json:"description"`
	BasePrice       money.Amount     `json:"base_price" binding:"required"`
	WeekendPrice    *money.Amount    `json:"weekend_price"`
	CleaningFee     money.Amount     `json:"cleaning_fee"`
	WeeklyDiscount  *decimal.Decimal `json:"weekly_discount"`
	MonthlyDiscount *decimal.Decimal `json:"monthly_discount"`
	MaxGuests       int              `json:"max_guests" binding:"required,min=1"`
	MinimumStay     int              `json:"minimum_stay" binding:"omitempty,min=1"`
	MaximumStay     *int             `json:"maximum_stay" binding:"omitempty,min=1"`
	InstantBook     bool             `json:"instant_book"`
}

// Validate performs custom validation for CreatePropertyRequest.
func (r *CreatePropertyRequest) Validate() error {
	if r.CleaningFee < 0 {
		return money.ErrNegativeAmount
	}
	if r.WeekendPrice != nil && *r.WeekendPrice <= 0 {
		return property.ErrInvalidBasePrice
	}
	return nil
}

// UpdatePropertyRequest is a partial update. Sending an explicit null is not
// distinguishable from omitting a field, so optional values are cleared with the clear_* flags.
type UpdatePropertyRequest struct {
	Title           *string          `json:"title" binding:"omitempty,min=1"`
	Description     *string          `json:"description"`
	BasePrice       *money.Amount    `json:"base_price"`
	WeekendPrice    *money.Amount    `json:"weekend_price"`
	CleaningFee     *money.Amount    `json:"cleaning_fee"`
	WeeklyDiscount  *decimal.Decimal `json:"weekly_discount"`
	MonthlyDiscount *decimal.Decimal `json:"monthly_discount"`
	MaxGuests       *int             `json:"max_guests" binding:"omitempty,min=1"`
	MinimumStay     *int             `json:"minimum_stay" binding:"omitempty,min=1"`
	MaximumStay     *int             `json:"maximum_stay" binding:"omitempty,min=1"`
	InstantBook     *bool            `json:"instant_book"`

	ClearWeekendPrice    bool `json:"clear_weekend_price"`
	ClearWeeklyDiscount  bool `json:"clear_weekly_discount"`
	ClearMonthlyDiscount bool `json:"clear_monthly_discount"`
	ClearMaximumStay     bool `json:"clear_maximum_stay"`
}

// Validate performs custom validation for UpdatePropertyRequest.
func (r *UpdatePropertyRequest) Validate() error {
	if r.CleaningFee != nil && *r.CleaningFee < 0 {
		return money.ErrNegativeAmount
	}
	if r.WeekendPrice != nil && *r.WeekendPrice <= 0 {
		return property.ErrInvalidBasePrice
	}
	return nil
}

func (r *UpdatePropertyRequest) toDomain() property.UpdateRequest {
	return property.UpdateRequest{
		Title:                r.Title,
		Description:          r.Description,
		BasePrice:            r.BasePrice,
		WeekendPrice:         r.WeekendPrice,
		CleaningFee:          r.CleaningFee,
		WeeklyDiscount:       r.WeeklyDiscount,
		MonthlyDiscount:      r.MonthlyDiscount,
		MaxGuests:            r.MaxGuests,
		MinimumStay:          r.MinimumStay,
		MaximumStay:          r.MaximumStay,
		InstantBook:          r.InstantBook,
		ClearWeekendPrice:    r.ClearWeekendPrice,
		ClearWeeklyDiscount:  r.ClearWeeklyDiscount,
		ClearMonthlyDiscount: r.ClearMonthlyDiscount,
		ClearMaximumStay:     r.ClearMaximumStay,
	}
}

type SetCustomPricesRequest struct {
	Prices []CustomPrice `json:"prices" binding:"required,min=1"`
}

// Validate performs custom validation for SetCustomPricesRequest.
func (r *SetCustomPricesRequest) Validate() error {
	for _, p := range r.Prices {
		if p.Date.IsZero() {
			return calendar.ErrInvalidDate
		}
	}
	return nil
}

func (r *SetCustomPricesRequest) toMap() map[calendar.Date]money.Amount {
	out := make(map[calendar.Date]money.Amount, len(r.Prices))
	for _, p := range r.Prices {
		out[p.Date] = p.Price
	}
	return out
}

// DatesRequest carries the nights to block, unblock or reset to the default price.
type DatesRequest struct {
	Dates []calendar.Date `json:"dates" binding:"required,min=1"`
}

// Validate performs custom validation for DatesRequest.
func (r *DatesRequest) Validate() error {
	for _, d := range r.Dates {
		if d.IsZero() {
			return calendar.ErrInvalidDate
		}
	}
	return nil
}
