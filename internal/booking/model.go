package booking

import (
	"time"

	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/calendar"
	"github.com/nekogravitycat/stay-booking-backend/internal/pricing"
)

var (
	ErrNotFound               = apperror.NotFound("booking not found")
	ErrPropertyNotFound       = apperror.NotFound("property not found")
	ErrDatesUnavailable       = apperror.Conflict("property is not available for the selected dates")
	ErrDuplicateActiveBooking = apperror.Conflict("guest already has an active booking for this property")
	ErrInvalidTransition      = apperror.Conflict("booking cannot move to the requested status")
	ErrStatusChanged          = apperror.Conflict("booking status was changed by another request")
	ErrRequestTokenReused     = apperror.Conflict("request token was already used for a different booking")
	ErrPermissionDenied       = apperror.Forbidden("permission denied")
	ErrInvalidDateRange       = apperror.Validation("check-out must be after check-in")
	ErrCheckInPast            = apperror.Validation("check-in date cannot be in the past")
	ErrInvalidGuests          = apperror.Validation("at least one adult is required and guest counts cannot be negative")
	ErrTooManyGuests          = apperror.Validation("guest count exceeds the property's capacity")
	ErrBelowMinimumStay       = apperror.Validation("stay is shorter than the property's minimum stay")
	ErrAboveMaximumStay       = apperror.Validation("stay is longer than the property's maximum stay")
	ErrSelfBooking            = apperror.Validation("hosts cannot book their own property")
	ErrInvalidStatus          = apperror.Validation("invalid booking status")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// ActiveStatuses are the statuses that occupy the calendar.
var ActiveStatuses = []Status{StatusPending, StatusConfirmed}

// ParseStatus validates a client-supplied status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return st, nil
	}
	return "", ErrInvalidStatus
}

func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed
}

const PaymentUnpaid = "unpaid"

type Booking struct {
	ID              string
	PropertyID      string
	HostID          string
	GuestID         string
	CheckIn         calendar.Date
	CheckOut        calendar.Date
	Guests          pricing.Guests
	Pricing         pricing.Breakdown
	Status          Status
	PaymentStatus   string
	SpecialRequests string
	RequestToken    string
	CreatedAt       time.Time
	UpdatedAt       time.Time

	CancelledAt        *time.Time
	CancellationReason *string
	CancelledBy        *string
}

// Stay returns the booked nights as a half-open range.
func (b *Booking) Stay() calendar.Range {
	return calendar.Range{CheckIn: b.CheckIn, CheckOut: b.CheckOut}
}

// Overlaps reports whether b is active and shares at least one night with stay.
func (b *Booking) Overlaps(stay calendar.Range) bool {
	return b.Status.IsActive() && b.Stay().Overlaps(stay)
}

// Draft is everything needed to persist a new booking once pricing and availability are settled.
type Draft struct {
	PropertyID      string
	HostID          string
	GuestID         string
	Stay            calendar.Range
	Guests          pricing.Guests
	Pricing         pricing.Breakdown
	Status          Status
	SpecialRequests string
	RequestToken    string
	// Today bounds the duplicate-booking rule: only stays ending after it count.
	Today calendar.Date
}

func (d Draft) booking() *Booking {
	return &Booking{
		PropertyID:      d.PropertyID,
		HostID:          d.HostID,
		GuestID:         d.GuestID,
		CheckIn:         d.Stay.CheckIn,
		CheckOut:        d.Stay.CheckOut,
		Guests:          d.Guests,
		Pricing:         d.Pricing,
		Status:          d.Status,
		PaymentStatus:   PaymentUnpaid,
		SpecialRequests: d.SpecialRequests,
		RequestToken:    d.RequestToken,
	}
}

// replays reports whether b, found under the draft's request token, was made from the same request.
func (d Draft) replays(b *Booking) bool {
	return b.PropertyID == d.PropertyID &&
		b.CheckIn.Equal(d.Stay.CheckIn) &&
		b.CheckOut.Equal(d.Stay.CheckOut) &&
		b.Guests == d.Guests
}

// replayOf returns b as the replay of d, or ErrRequestTokenReused when the token was spent on another stay.
func (d Draft) replayOf(b *Booking) (*Booking, error) {
	if !d.replays(b) {
		return nil, ErrRequestTokenReused
	}
	return b, nil
}

// StatusUpdate is a compare-and-set: it applies only while the booking is still in From.
type StatusUpdate struct {
	From    Status
	To      Status
	Reason  *string
	ActorID string
	At      time.Time
}

// appliedTo reports whether b already carries this update, as when a retry follows a commit
// whose acknowledgement was lost.
func (u StatusUpdate) appliedTo(b *Booking) bool {
	if b.Status != u.To || !b.UpdatedAt.Equal(u.At) {
		return false
	}
	if u.To == StatusCancelled {
		return b.CancelledBy != nil && *b.CancelledBy == u.ActorID
	}
	return true
}

// Filter defines options for listing bookings.
type Filter struct {
	GuestID    string
	HostID     string
	PropertyID string
	Statuses   []Status
	Page       int
	PageSize   int
}
