package http

import (
	"time"

	"github.com/nekogravitycat/stay-booking-backend/internal/booking"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/calendar"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/stay-booking-backend/internal/pricing"
)

// IdempotencyHeader may carry the request token instead of the body.
const IdempotencyHeader = "Idempotency-Key"

type BookingResponse struct {
	ID                 string            `json:"id"`
	PropertyID         string            `json:"property_id"`
	HostID             string            `json:"host_id"`
	GuestID            string            `json:"guest_id"`
	CheckIn            calendar.Date     `json:"check_in"`
	CheckOut           calendar.Date     `json:"check_out"`
	Guests             pricing.Guests    `json:"guests"`
	Pricing            pricing.Breakdown `json:"pricing"`
	Status             string            `json:"status"`
	PaymentStatus      string            `json:"payment_status"`
	SpecialRequests    string            `json:"special_requests"`
	RequestToken       string            `json:"request_token"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
	CancelledAt        *time.Time        `json:"cancelled_at"`
	CancellationReason *string           `json:"cancellation_reason"`
	CancelledBy        *string           `json:"cancelled_by"`
}

func NewBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:                 b.ID,
		PropertyID:         b.PropertyID,
		HostID:             b.HostID,
		GuestID:            b.GuestID,
		CheckIn:            b.CheckIn,
		CheckOut:           b.CheckOut,
		Guests:             b.Guests,
		Pricing:            b.Pricing,
		Status:             string(b.Status),
		PaymentStatus:      b.PaymentStatus,
		SpecialRequests:    b.SpecialRequests,
		RequestToken:       b.RequestToken,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
		CancelledAt:        b.CancelledAt,
		CancellationReason: b.CancellationReason,
		CancelledBy:        b.CancelledBy,
	}
}

type CreateBookingRequest struct {
	PropertyID      string         `json:"property_id" binding:"required,uuid"`
	CheckIn         calendar.Date  `json:"check_in"`
	CheckOut        calendar.Date  `json:"check_out"`
	Guests          pricing.Guests `json:"guests"`
	SpecialRequests string         `json:"special_requests" binding:"max=2000"`
	RequestToken    string         `json:"request_token" binding:"max=200"`
}

// Validate performs custom validation for CreateBookingRequest.
func (r *CreateBookingRequest) Validate() error {
	if r.CheckIn.IsZero() || r.CheckOut.IsZero() {
		return calendar.ErrInvalidDate
	}
	if !r.CheckOut.After(r.CheckIn) {
		return booking.ErrInvalidDateRange
	}
	return nil
}

// ListBookingsRequest defines query parameters for listing the caller's bookings.
type ListBookingsRequest struct {
	request.ListParams
	As     string `form:"as" binding:"omitempty,oneof=guest host"`
	Status string `form:"status" binding:"omitempty,oneof=pending confirmed cancelled"`
}

func (r *ListBookingsRequest) filter() booking.Filter {
	f := booking.Filter{Page: r.Page, PageSize: r.PageSize}
	if r.Status != "" {
		f.Statuses = []booking.Status{booking.Status(r.Status)}
	}
	return f
}

type UpdateStatusRequest struct {
	Status string  `json:"status" binding:"required,oneof=pending confirmed cancelled"`
	Reason *string `json:"reason" binding:"omitempty,max=500"`
}

type QuoteRequest struct {
	CheckIn  calendar.Date  `json:"check_in"`
	CheckOut calendar.Date  `json:"check_out"`
	Guests   pricing.Guests `json:"guests"`
}

// Validate performs custom validation for QuoteRequest.
func (r *QuoteRequest) Validate() error {
	if r.CheckIn.IsZero() || r.CheckOut.IsZero() {
		return calendar.ErrInvalidDate
	}
	return nil
}

type QuoteResponse struct {
	PropertyID string            `json:"property_id"`
	CheckIn    calendar.Date     `json:"check_in"`
	CheckOut   calendar.Date     `json:"check_out"`
	Guests     pricing.Guests    `json:"guests"`
	Pricing    pricing.Breakdown `json:"pricing"`
}

type AvailabilityRequest struct {
	CheckIn  string `form:"check_in" binding:"required"`
	CheckOut string `form:"check_out" binding:"required"`
}

// Range parses the query into a stay.
func (r *AvailabilityRequest) Range() (calendar.Range, error) {
	in, err := calendar.Parse(r.CheckIn)
	if err != nil {
		return calendar.Range{}, err
	}
	out, err := calendar.Parse(r.CheckOut)
	if err != nil {
		return calendar.Range{}, err
	}
	rng, err := calendar.NewRange(in, out)
	if err != nil {
		return calendar.Range{}, booking.ErrInvalidDateRange
	}
	return rng, nil
}

type AvailabilityResponse struct {
	PropertyID string        `json:"property_id"`
	CheckIn    calendar.Date `json:"check_in"`
	CheckOut   calendar.Date `json:"check_out"`
	Available  bool          `json:"available"`
}

type ActiveBookingResponse struct {
	Booking *BookingResponse `json:"booking"`
}
