package calendar

import "errors"

var ErrInvalidRange = errors.New("check-out must be after check-in")

// Range is the half-open stay [CheckIn, CheckOut): the check-in night is included, the check-out night is not.
type Range struct {
	CheckIn  Date
	CheckOut Date
}

// NewRange builds a Range, rejecting empty or inverted stays.
func NewRange(checkIn, checkOut Date) (Range, error) {
	r := Range{CheckIn: checkIn, CheckOut: checkOut}
	if !r.Valid() {
		return Range{}, ErrInvalidRange
	}
	return r, nil
}

func (r Range) Valid() bool {
	return !r.CheckIn.IsZero() && r.CheckOut.After(r.CheckIn)
}

// Nights is the day-count difference between check-out and check-in.
func (r Range) Nights() int {
	return r.CheckOut.DayCount() - r.CheckIn.DayCount()
}

// Overlaps reports whether two stays share at least one night. Touching ranges do not overlap.
func (r Range) Overlaps(o Range) bool {
	return r.CheckIn.Before(o.CheckOut) && r.CheckOut.After(o.CheckIn)
}

// Contains reports whether the night starting on d falls inside the stay.
func (r Range) Contains(d Date) bool {
	return !d.Before(r.CheckIn) && d.Before(r.CheckOut)
}

// Dates returns one entry per night, in order.
func (r Range) Dates() []Date {
	n := r.Nights()
	if n <= 0 {
		return nil
	}
	out := make([]Date, 0, n)
	for d := r.CheckIn; d.Before(r.CheckOut); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

func (r Range) String() string {
	return "[" + r.CheckIn.String() + ", " + r.CheckOut.String() + ")"
}
