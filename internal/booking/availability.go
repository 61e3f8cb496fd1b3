package booking

import (
	"context"
	"sort"

	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/calendar"
	"github.com/nekogravitycat/stay-booking-backend/internal/property"
)

// IsAvailable reports whether every night of stay is open on the property.
// An unknown property is simply unavailable; storage failures are returned, never folded into false.
func (s *service) IsAvailable(ctx context.Context, propertyID string, stay calendar.Range) (bool, error) {
	if !stay.Valid() {
		return false, ErrInvalidDateRange
	}

	p, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return s.available(ctx, p, stay)
}

func (s *service) available(ctx context.Context, p *property.Property, stay calendar.Range) (bool, error) {
	if p.HasBlockedDateIn(stay) {
		return false, nil
	}

	active, err := s.repo.ListByProperty(ctx, p.ID, ActiveStatuses...)
	if err != nil {
		return false, err
	}
	for _, b := range active {
		if b.Overlaps(stay) {
			return false, nil
		}
	}
	return true, nil
}

// FindActiveBookingForGuest returns the guest's earliest active booking on the property that has
// not checked out yet, or nil when there is none.
func (s *service) FindActiveBookingForGuest(ctx context.Context, guestID, propertyID string) (*Booking, error) {
	bookings, err := s.repo.ListByGuest(ctx, guestID)
	if err != nil {
		return nil, err
	}

	today := calendar.Today(s.now())
	var found []*Booking
	for _, b := range bookings {
		if b.PropertyID == propertyID && b.Status.IsActive() && b.CheckOut.After(today) {
			found = append(found, b)
		}
	}
	if len(found) == 0 {
		return nil, nil
	}

	sort.Slice(found, func(i, j int) bool { return found[i].CheckIn.Before(found[j].CheckIn) })
	return found[0], nil
}
