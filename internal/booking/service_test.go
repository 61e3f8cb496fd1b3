package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/calendar"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/events"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/money"
	"github.com/nekogravitycat/stay-booking-backend/internal/pricing"
	"github.com/nekogravitycat/stay-booking-backend/internal/property"
)

const (
	propertyID = "prop-1"
	hostID     = "host-1"
	guestID    = "guest-1"
	otherGuest = "guest-2"
)

var (
	fixedNow   = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	testEngine = pricing.NewEngine(decimal.RequireFromString("0.12"), decimal.RequireFromString("0.08"))
	twoAdults  = pricing.Guests{Adults: 2}
)

type fixture struct {
	svc      Service
	repo     *memRepo
	props    *fakeProperties
	events   *events.Recorder
	recorder *countingRecorder
	listing  *property.Property
}

func newFixture(t *testing.T, mutate ...func(p *property.Property)) *fixture {
	t.Helper()
	listing := &property.Property{
		ID:          propertyID,
		HostID:      hostID,
		Title:       "Cabin",
		BasePrice:   money.FromUnits(100),
		CleaningFee: money.FromUnits(50),
		MaxGuests:   4,
		MinimumStay: 1,
	}
	for _, m := range mutate {
		m(listing)
	}

	props := newFakeProperties(listing)
	repo := newMemRepo(props)
	rec := &events.Recorder{}
	counts := newCountingRecorder()
	svc := NewService(repo, props, testEngine, Options{
		Publisher: rec,
		Recorder:  counts,
		Now:       func() time.Time { return fixedNow },
	})
	return &fixture{svc: svc, repo: repo, props: props, events: rec, recorder: counts, listing: listing}
}

func stay(t *testing.T, in, out string) calendar.Range {
	t.Helper()
	r, err := calendar.NewRange(calendar.MustParse(in), calendar.MustParse(out))
	require.NoError(t, err)
	return r
}

func (f *fixture) book(t *testing.T, guest, in, out string) *Booking {
	t.Helper()
	b, replayed, err := f.svc.CreateBooking(context.Background(), CreateRequest{
		PropertyID: propertyID,
		GuestID:    guest,
		CheckIn:    calendar.MustParse(in),
		CheckOut:   calendar.MustParse(out),
		Guests:     twoAdults,
	})
	require.NoError(t, err)
	require.False(t, replayed)
	return b
}

func TestIsAvailable_TouchingStaysDoNotOverlap(t *testing.T) {
	f := newFixture(t, func(p *property.Property) { p.InstantBook = true })
	ctx := context.Background()

	existing := f.book(t, guestID, "2024-06-01", "2024-06-05")
	require.Equal(t, StatusConfirmed, existing.Status)

	ok, err := f.svc.IsAvailable(ctx, propertyID, stay(t, "2024-06-05", "2024-06-08"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.IsAvailable(ctx, propertyID, stay(t, "2024-06-04", "2024-06-06"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.svc.IsAvailable(ctx, propertyID, stay(t, "2024-05-28", "2024-06-01"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsAvailable_CancelledBookingFreesDates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.book(t, guestID, "2024-06-01", "2024-06-05")
	_, err := f.svc.TransitionBooking(ctx, b.ID, StatusCancelled, nil, guestID)
	require.NoError(t, err)

	ok, err := f.svc.IsAvailable(ctx, propertyID, stay(t, "2024-06-02", "2024-06-03"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsAvailable_BlockedDates(t *testing.T) {
	f := newFixture(t, func(p *property.Property) {
		p.BlockedDates = []calendar.Date{calendar.MustParse("2024-07-04")}
	})
	ctx := context.Background()

	ok, err := f.svc.IsAvailable(ctx, propertyID, stay(t, "2024-07-03", "2024-07-05"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.svc.IsAvailable(ctx, propertyID, stay(t, "2024-07-01", "2024-07-04"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsAvailable_UnknownPropertyIsFalse(t *testing.T) {
	f := newFixture(t)

	ok, err := f.svc.IsAvailable(context.Background(), "nope", stay(t, "2024-06-01", "2024-06-02"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsAvailable_StorageFailureIsNotFalse(t *testing.T) {
	ctx := context.Background()
	r := stay(t, "2024-06-01", "2024-06-02")

	t.Run("property lookup", func(t *testing.T) {
		f := newFixture(t)
		f.props.err = errStorageDown

		_, err := f.svc.IsAvailable(ctx, propertyID, r)
		require.Error(t, err)
		assert.True(t, apperror.IsPersistence(err))
		assert.True(t, apperror.IsTransient(err))
	})

	t.Run("booking lookup", func(t *testing.T) {
		f := newFixture(t)
		f.repo.listErr = errStorageDown

		_, err := f.svc.IsAvailable(ctx, propertyID, r)
		require.Error(t, err)
		assert.True(t, apperror.IsPersistence(err))
		assert.False(t, apperror.IsConflict(err))
	})
}

func TestQuote_UsesPropertyRules(t *testing.T) {
	f := newFixture(t)

	b, err := f.svc.Quote(context.Background(), propertyID, stay(t, "2024-06-03", "2024-06-05"), twoAdults)
	require.NoError(t, err)
	assert.Equal(t, "295.92", b.Total.String())

	_, err = f.svc.Quote(context.Background(), "nope", stay(t, "2024-06-03", "2024-06-05"), twoAdults)
	assert.ErrorIs(t, err, ErrPropertyNotFound)
}

func TestLifecycle_PendingConfirmCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.book(t, guestID, "2024-06-03", "2024-06-05")
	assert.Equal(t, StatusPending, b.Status)
	assert.Equal(t, PaymentUnpaid, b.PaymentStatus)
	assert.Equal(t, "295.92", b.Pricing.Total.String())

	confirmed, err := f.svc.TransitionBooking(ctx, b.ID, StatusConfirmed, nil, hostID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)

	_, err = f.svc.TransitionBooking(ctx, b.ID, StatusConfirmed, nil, hostID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.True(t, apperror.IsConflict(err))

	reason := "  change of plans "
	cancelled, err := f.svc.TransitionBooking(ctx, b.ID, StatusCancelled, &reason, guestID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	assert.True(t, cancelled.CancelledAt.Equal(fixedNow))
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, "change of plans", *cancelled.CancellationReason)
	require.NotNil(t, cancelled.CancelledBy)
	assert.Equal(t, guestID, *cancelled.CancelledBy)

	_, err = f.svc.TransitionBooking(ctx, b.ID, StatusCancelled, nil, guestID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// Pricing is frozen at creation.
	assert.Equal(t, b.Pricing, cancelled.Pricing)

	assert.Equal(t, []string{EventCreated, EventConfirmed, EventCancelled}, f.events.Keys())
	assert.Equal(t, 1, f.recorder.transitions["pending->confirmed"])
	assert.Equal(t, 1, f.recorder.transitions["confirmed->cancelled"])
}

func TestTransition_Authorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, guestID, "2024-06-03", "2024-06-05")

	cases := []struct {
		name  string
		to    Status
		actor string
		want  error
	}{
		{"guest cannot confirm", StatusConfirmed, guestID, ErrPermissionDenied},
		{"stranger cannot cancel", StatusCancelled, otherGuest, ErrPermissionDenied},
		{"anonymous cannot cancel", StatusCancelled, "", ErrPermissionDenied},
		{"nobody moves back to pending", StatusPending, hostID, ErrInvalidTransition},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.TransitionBooking(ctx, b.ID, tc.to, nil, tc.actor)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := f.svc.TransitionBooking(ctx, "missing", StatusCancelled, nil, hostID)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := f.repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestTransition_HostMayCancel(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, guestID, "2024-06-03", "2024-06-05")

	got, err := f.svc.TransitionBooking(context.Background(), b.ID, StatusCancelled, nil, hostID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	assert.Nil(t, got.CancellationReason)
}

func TestTransition_ConcurrentCancelsOneWins(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, guestID, "2024-06-03", "2024-06-05")

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(actor string) {
			defer wg.Done()
			_, err := f.svc.TransitionBooking(context.Background(), b.ID, StatusCancelled, nil, actor)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case apperror.IsConflict(err):
				conflicts++
			}
		}([]string{guestID, hostID}[i%2])
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)
}

func TestCreateBooking_InstantBookConfirms(t *testing.T) {
	f := newFixture(t, func(p *property.Property) { p.InstantBook = true })

	b := f.book(t, guestID, "2024-06-03", "2024-06-05")
	assert.Equal(t, StatusConfirmed, b.Status)
	assert.Equal(t, 1, f.recorder.created["confirmed"])
}

func TestCreateBooking_Validation(t *testing.T) {
	f := newFixture(t, func(p *property.Property) {
		p.MinimumStay = 2
		week := 7
		p.MaximumStay = &week
	})
	ctx := context.Background()

	base := CreateRequest{
		PropertyID: propertyID,
		GuestID:    guestID,
		CheckIn:    calendar.MustParse("2024-06-03"),
		CheckOut:   calendar.MustParse("2024-06-06"),
		Guests:     twoAdults,
	}

	cases := []struct {
		name   string
		mutate func(r *CreateRequest)
		want   error
	}{
		{"reversed dates", func(r *CreateRequest) { r.CheckOut = r.CheckIn }, ErrInvalidDateRange},
		{"no adults", func(r *CreateRequest) { r.Guests = pricing.Guests{Children: 2} }, ErrInvalidGuests},
		{"negative infants", func(r *CreateRequest) { r.Guests.Infants = -1 }, ErrInvalidGuests},
		{"past check-in", func(r *CreateRequest) { r.CheckIn = calendar.MustParse("2024-04-30") }, ErrCheckInPast},
		{"unknown property", func(r *CreateRequest) { r.PropertyID = "nope" }, ErrPropertyNotFound},
		{"host books own place", func(r *CreateRequest) { r.GuestID = hostID }, ErrSelfBooking},
		{"below minimum stay", func(r *CreateRequest) { r.CheckOut = calendar.MustParse("2024-06-04") }, ErrBelowMinimumStay},
		{"above maximum stay", func(r *CreateRequest) { r.CheckOut = calendar.MustParse("2024-06-20") }, ErrAboveMaximumStay},
		{"too many guests", func(r *CreateRequest) { r.Guests = pricing.Guests{Adults: 3, Children: 2} }, ErrTooManyGuests},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			tc.mutate(&req)
			_, _, err := f.svc.CreateBooking(ctx, req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	// Infants do not count against capacity.
	req := base
	req.Guests = pricing.Guests{Adults: 2, Children: 2, Infants: 2}
	_, _, err := f.svc.CreateBooking(ctx, req)
	assert.NoError(t, err)
}

func TestCreateBooking_CheckInTodayAllowed(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, guestID, "2024-05-01", "2024-05-02")
	assert.Equal(t, calendar.MustParse("2024-05-01"), b.CheckIn)
}

func TestCreateBooking_ConflictWithExisting(t *testing.T) {
	f := newFixture(t)
	f.book(t, guestID, "2024-06-01", "2024-06-05")

	_, _, err := f.svc.CreateBooking(context.Background(), CreateRequest{
		PropertyID: propertyID,
		GuestID:    otherGuest,
		CheckIn:    calendar.MustParse("2024-06-04"),
		CheckOut:   calendar.MustParse("2024-06-06"),
		Guests:     twoAdults,
	})
	assert.ErrorIs(t, err, ErrDatesUnavailable)
	assert.True(t, apperror.IsConflict(err))
	assert.Equal(t, 1, f.recorder.conflicts["dates"])
}

func TestCreateBooking_OneActiveFutureBookingPerGuest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.book(t, guestID, "2024-06-01", "2024-06-03")

	req := CreateRequest{
		PropertyID: propertyID,
		GuestID:    guestID,
		CheckIn:    calendar.MustParse("2024-07-01"),
		CheckOut:   calendar.MustParse("2024-07-03"),
		Guests:     twoAdults,
	}
	_, _, err := f.svc.CreateBooking(ctx, req)
	assert.ErrorIs(t, err, ErrDuplicateActiveBooking)
	assert.Equal(t, 1, f.recorder.conflicts["duplicate_guest"])

	_, err = f.svc.TransitionBooking(ctx, first.ID, StatusCancelled, nil, guestID)
	require.NoError(t, err)

	_, _, err = f.svc.CreateBooking(ctx, req)
	assert.NoError(t, err)
}

func TestCreateBooking_RequestTokenReplays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := CreateRequest{
		PropertyID:   propertyID,
		GuestID:      guestID,
		CheckIn:      calendar.MustParse("2024-06-01"),
		CheckOut:     calendar.MustParse("2024-06-03"),
		Guests:       twoAdults,
		RequestToken: "retry-me",
	}

	first, replayed, err := f.svc.CreateBooking(ctx, req)
	require.NoError(t, err)
	assert.False(t, replayed)

	second, replayed, err := f.svc.CreateBooking(ctx, req)
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, second.ID)

	assert.Len(t, f.repo.bookings, 1)
	assert.Equal(t, []string{EventCreated}, f.events.Keys())
}

func TestCreateBooking_RequestTokenReusedForDifferentStay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := CreateRequest{
		PropertyID:   propertyID,
		GuestID:      guestID,
		CheckIn:      calendar.MustParse("2024-06-01"),
		CheckOut:     calendar.MustParse("2024-06-03"),
		Guests:       twoAdults,
		RequestToken: "tok",
	}
	first, _, err := f.svc.CreateBooking(ctx, req)
	require.NoError(t, err)

	changed := map[string]func(r *CreateRequest){
		"dates": func(r *CreateRequest) {
			r.CheckIn, r.CheckOut = calendar.MustParse("2024-09-01"), calendar.MustParse("2024-09-10")
		},
		"guests": func(r *CreateRequest) { r.Guests = pricing.Guests{Adults: 3} },
	}
	for name, mutate := range changed {
		t.Run(name, func(t *testing.T) {
			again := req
			mutate(&again)

			b, replayed, err := f.svc.CreateBooking(ctx, again)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrRequestTokenReused)
			assert.True(t, apperror.IsConflict(err))
			assert.False(t, replayed)
			assert.Nil(t, b)
		})
	}

	assert.Len(t, f.repo.bookings, 1)
	assert.Equal(t, 2, f.recorder.conflicts["request_token"])

	// The original request still replays.
	b, replayed, err := f.svc.CreateBooking(ctx, req)
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, b.ID)
}

func TestCreateBooking_StayLengthCapped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.CreateBooking(ctx, CreateRequest{
		PropertyID: propertyID,
		GuestID:    guestID,
		CheckIn:    calendar.MustParse("2024-06-01"),
		CheckOut:   calendar.MustParse("9999-12-31"),
		Guests:     twoAdults,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, pricing.ErrStayTooLong)
	assert.Empty(t, f.repo.bookings)

	_, err = f.svc.Quote(ctx, propertyID, stay(t, "0001-01-02", "9999-12-31"), twoAdults)
	assert.ErrorIs(t, err, pricing.ErrStayTooLong)

	q, err := f.svc.Quote(ctx, propertyID, stay(t, "2024-06-01", "2025-06-01"), twoAdults)
	require.NoError(t, err)
	assert.Equal(t, pricing.MaxNights, q.Nights)
}

func TestCreateBooking_GeneratesTokenWhenAbsent(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, guestID, "2024-06-01", "2024-06-03")
	assert.NotEmpty(t, b.RequestToken)
}

func TestCreate_ConcurrentOverlappingOneWins(t *testing.T) {
	f := newFixture(t)
	const n = 16

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
		others    []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Every request overlaps 2024-06-10.
			in := calendar.MustParse("2024-06-08").AddDays(i % 3)
			_, _, err := f.svc.CreateBooking(context.Background(), CreateRequest{
				PropertyID: propertyID,
				GuestID:    "guest-" + string(rune('a'+i)),
				CheckIn:    in,
				CheckOut:   calendar.MustParse("2024-06-11"),
				Guests:     twoAdults,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrDatesUnavailable):
				conflicts++
			default:
				others = append(others, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Empty(t, others)
	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)

	active, err := f.repo.ListByProperty(context.Background(), propertyID, ActiveStatuses...)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestCreate_RejectsBadDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.Create(ctx, Draft{PropertyID: propertyID, Stay: calendar.Range{}, Status: StatusPending})
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	_, _, err = f.svc.Create(ctx, Draft{PropertyID: propertyID, Stay: stay(t, "2024-06-01", "2024-06-02"), Status: StatusCancelled})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestFindActiveBookingForGuest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.svc.FindActiveBookingForGuest(ctx, guestID, propertyID)
	require.NoError(t, err)
	assert.Nil(t, got)

	b := f.book(t, guestID, "2024-06-01", "2024-06-03")

	got, err = f.svc.FindActiveBookingForGuest(ctx, guestID, propertyID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, b.ID, got.ID)

	got, err = f.svc.FindActiveBookingForGuest(ctx, otherGuest, propertyID)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = f.svc.TransitionBooking(ctx, b.ID, StatusCancelled, nil, guestID)
	require.NoError(t, err)

	got, err = f.svc.FindActiveBookingForGuest(ctx, guestID, propertyID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetByID_ParticipantsOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, guestID, "2024-06-01", "2024-06-03")

	for _, actor := range []string{guestID, hostID} {
		got, err := f.svc.GetByID(ctx, b.ID, actor)
		require.NoError(t, err)
		assert.Equal(t, b.ID, got.ID)
	}

	_, err := f.svc.GetByID(ctx, b.ID, otherGuest)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestListForProperty_HostOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, guestID, "2024-06-01", "2024-06-03")

	items, total, err := f.svc.ListForProperty(ctx, propertyID, hostID, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, items, 1)

	_, _, err = f.svc.ListForProperty(ctx, propertyID, guestID, Filter{})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	mine, _, err := f.svc.ListForGuest(ctx, guestID, Filter{})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	hosted, _, err := f.svc.ListForHost(ctx, hostID, Filter{})
	require.NoError(t, err)
	assert.Len(t, hosted, 1)
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, string, any) error { return errors.New("broker down") }
func (failingPublisher) Close() error                               { return nil }

func TestCreate_PublishFailureDoesNotFailBooking(t *testing.T) {
	f := newFixture(t)
	counts := newCountingRecorder()
	svc := NewService(f.repo, f.props, testEngine, Options{
		Publisher: failingPublisher{},
		Recorder:  counts,
		Now:       func() time.Time { return fixedNow },
	})

	_, _, err := svc.CreateBooking(context.Background(), CreateRequest{
		PropertyID: propertyID,
		GuestID:    guestID,
		CheckIn:    calendar.MustParse("2024-06-01"),
		CheckOut:   calendar.MustParse("2024-06-03"),
		Guests:     twoAdults,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, counts.failures)
}
