package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/calendar"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/events"
	"github.com/nekogravitycat/stay-booking-backend/internal/pricing"
	"github.com/nekogravitycat/stay-booking-backend/internal/property"
)

// PropertyReader loads the listing a booking is made against.
type PropertyReader interface {
	GetByID(ctx context.Context, id string) (*property.Property, error)
}

// Recorder receives booking outcomes for metrics.
type Recorder interface {
	BookingCreated(status string)
	BookingConflict(reason string)
	BookingTransitioned(from, to string)
	EventPublishFailed()
}

type nopRecorder struct{}

func (nopRecorder) BookingCreated(string)              {}
func (nopRecorder) BookingConflict(string)             {}
func (nopRecorder) BookingTransitioned(string, string) {}
func (nopRecorder) EventPublishFailed()                {}

// Options carries the optional collaborators of the service. Zero values fall back to no-ops and time.Now.
type Options struct {
	Publisher events.Publisher
	Recorder  Recorder
	Now       func() time.Time
}

type CreateRequest struct {
	PropertyID      string
	GuestID         string
	CheckIn         calendar.Date
	CheckOut        calendar.Date
	Guests          pricing.Guests
	SpecialRequests string
	// RequestToken makes retries safe. One is generated when empty.
	RequestToken string
}

type Service interface {
	Quote(ctx context.Context, propertyID string, stay calendar.Range, guests pricing.Guests) (pricing.Breakdown, error)
	IsAvailable(ctx context.Context, propertyID string, stay calendar.Range) (bool, error)
	FindActiveBookingForGuest(ctx context.Context, guestID, propertyID string) (*Booking, error)

	// CreateBooking validates, prices and stores a booking request. replayed is true when the
	// request token matched an earlier booking, which is returned unchanged.
	CreateBooking(ctx context.Context, req CreateRequest) (b *Booking, replayed bool, err error)
	// Create stores an already priced draft.
	Create(ctx context.Context, d Draft) (b *Booking, replayed bool, err error)
	TransitionBooking(ctx context.Context, id string, to Status, reason *string, actorID string) (*Booking, error)

	// GetByID returns the booking if actorID is its guest or host.
	GetByID(ctx context.Context, id, actorID string) (*Booking, error)
	ListForGuest(ctx context.Context, guestID string, filter Filter) ([]*Booking, int, error)
	ListForHost(ctx context.Context, hostID string, filter Filter) ([]*Booking, int, error)
	ListForProperty(ctx context.Context, propertyID, actorID string, filter Filter) ([]*Booking, int, error)
}

type service struct {
	repo       Repository
	properties PropertyReader
	engine     pricing.Engine
	publisher  events.Publisher
	recorder   Recorder
	now        func() time.Time
}

func NewService(repo Repository, properties PropertyReader, engine pricing.Engine, opts Options) Service {
	s := &service{
		repo:       repo,
		properties: properties,
		engine:     engine,
		publisher:  opts.Publisher,
		recorder:   opts.Recorder,
		now:        opts.Now,
	}
	if s.publisher == nil {
		s.publisher = events.NopPublisher{}
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *service) loadProperty(ctx context.Context, id string) (*property.Property, error) {
	p, err := s.properties.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, property.ErrNotFound) {
			return nil, ErrPropertyNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *service) Quote(ctx context.Context, propertyID string, stay calendar.Range, guests pricing.Guests) (pricing.Breakdown, error) {
	if !stay.Valid() {
		return pricing.Breakdown{}, ErrInvalidDateRange
	}
	if stay.Nights() > pricing.MaxNights {
		return pricing.Breakdown{}, pricing.ErrStayTooLong
	}
	p, err := s.loadProperty(ctx, propertyID)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	return s.engine.Quote(p.PricingRules(), stay.CheckIn, stay.CheckOut, guests)
}

func validateGuests(g pricing.Guests) error {
	if g.Adults < 1 || g.Children < 0 || g.Infants < 0 {
		return ErrInvalidGuests
	}
	return nil
}

func (s *service) CreateBooking(ctx context.Context, req CreateRequest) (*Booking, bool, error) {
	// Input checks first, before any I/O.
	stay, err := calendar.NewRange(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, false, ErrInvalidDateRange
	}
	if stay.Nights() > pricing.MaxNights {
		return nil, false, pricing.ErrStayTooLong
	}
	if err := validateGuests(req.Guests); err != nil {
		return nil, false, err
	}
	today := calendar.Today(s.now())
	if stay.CheckIn.Before(today) {
		return nil, false, ErrCheckInPast
	}

	p, err := s.loadProperty(ctx, req.PropertyID)
	if err != nil {
		return nil, false, err
	}
	if p.IsHost(req.GuestID) {
		return nil, false, ErrSelfBooking
	}

	nights := stay.Nights()
	if nights < p.MinimumStay {
		return nil, false, ErrBelowMinimumStay
	}
	if p.MaximumStay != nil && nights > *p.MaximumStay {
		return nil, false, ErrAboveMaximumStay
	}
	if req.Guests.Occupants() > p.MaxGuests {
		return nil, false, ErrTooManyGuests
	}

	token := strings.TrimSpace(req.RequestToken)
	ok, err := s.available(ctx, p, stay)
	if err != nil {
		return nil, false, err
	}
	// A retried request finds its own booking in the way; Create replays it instead.
	if !ok && token == "" {
		s.recorder.BookingConflict("dates")
		return nil, false, ErrDatesUnavailable
	}
	if token == "" {
		token = uuid.NewString()
	}

	quote, err := s.engine.Quote(p.PricingRules(), stay.CheckIn, stay.CheckOut, req.Guests)
	if err != nil {
		return nil, false, err
	}

	status := StatusPending
	if p.InstantBook {
		status = StatusConfirmed
	}

	return s.Create(ctx, Draft{
		PropertyID:      p.ID,
		HostID:          p.HostID,
		GuestID:         req.GuestID,
		Stay:            stay,
		Guests:          req.Guests,
		Pricing:         quote,
		Status:          status,
		SpecialRequests: strings.TrimSpace(req.SpecialRequests),
		RequestToken:    token,
		Today:           today,
	})
}

func (s *service) Create(ctx context.Context, d Draft) (*Booking, bool, error) {
	if !d.Stay.Valid() {
		return nil, false, ErrInvalidDateRange
	}
	if !d.Status.IsActive() {
		return nil, false, ErrInvalidStatus
	}
	if d.RequestToken == "" {
		d.RequestToken = uuid.NewString()
	}
	if d.Today.IsZero() {
		d.Today = calendar.Today(s.now())
	}

	b, replayed, err := s.repo.Create(ctx, d)
	if err != nil {
		switch {
		case errors.Is(err, ErrDatesUnavailable):
			s.recorder.BookingConflict("dates")
		case errors.Is(err, ErrDuplicateActiveBooking):
			s.recorder.BookingConflict("duplicate_guest")
		case errors.Is(err, ErrRequestTokenReused):
			s.recorder.BookingConflict("request_token")
		}
		return nil, false, err
	}
	if replayed {
		return b, true, nil
	}

	s.recorder.BookingCreated(string(b.Status))
	s.publish(ctx, newEvent(EventCreated, b, b.GuestID, s.now()))
	return b, false, nil
}

func (s *service) TransitionBooking(ctx context.Context, id string, to Status, reason *string, actorID string) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(b, to, actorID); err != nil {
		return nil, err
	}

	// Storage keeps microseconds; the stamp must survive a round trip to recognize our own write.
	u := StatusUpdate{From: b.Status, To: to, ActorID: actorID, At: s.now().UTC().Truncate(time.Microsecond)}
	if to == StatusCancelled && reason != nil {
		if r := strings.TrimSpace(*reason); r != "" {
			u.Reason = &r
		}
	}

	updated, err := s.repo.UpdateStatus(ctx, id, u)
	if err != nil {
		if !errors.Is(err, ErrStatusChanged) {
			return nil, err
		}
		// Lost the race; explain the loss against the state that won.
		current, getErr := s.repo.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if checkErr := checkTransition(current, to, actorID); checkErr != nil {
			return nil, checkErr
		}
		return nil, err
	}

	s.recorder.BookingTransitioned(string(u.From), string(u.To))
	s.publish(ctx, newEvent(eventFor(to), updated, actorID, u.At))
	return updated, nil
}

func (s *service) GetByID(ctx context.Context, id, actorID string) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.RoleOf(actorID) == 0 {
		return nil, ErrPermissionDenied
	}
	return b, nil
}

func (s *service) ListForGuest(ctx context.Context, guestID string, filter Filter) ([]*Booking, int, error) {
	filter.GuestID, filter.HostID = guestID, ""
	return s.repo.ListOrderedByCreation(ctx, filter)
}

func (s *service) ListForHost(ctx context.Context, hostID string, filter Filter) ([]*Booking, int, error) {
	filter.HostID, filter.GuestID = hostID, ""
	return s.repo.ListOrderedByCreation(ctx, filter)
}

func (s *service) ListForProperty(ctx context.Context, propertyID, actorID string, filter Filter) ([]*Booking, int, error) {
	p, err := s.loadProperty(ctx, propertyID)
	if err != nil {
		return nil, 0, err
	}
	if !p.IsHost(actorID) {
		return nil, 0, ErrPermissionDenied
	}
	filter.PropertyID = propertyID
	return s.repo.ListOrderedByCreation(ctx, filter)
}
