package property

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/calendar"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/money"
)

type memRepo struct {
	mu    sync.Mutex
	seq   int
	props map[string]*Property
}

func newMemRepo() *memRepo {
	return &memRepo{props: map[string]*Property{}}
}

func (r *memRepo) clone(p *Property) *Property {
	cp := *p
	cp.CustomPricing = make(map[calendar.Date]money.Amount, len(p.CustomPricing))
	for d, a := range p.CustomPricing {
		cp.CustomPricing[d] = a
	}
	cp.BlockedDates = append([]calendar.Date(nil), p.BlockedDates...)
	return &cp
}

func (r *memRepo) Create(_ context.Context, p *Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	p.ID = fmt.Sprintf("00000000-0000-0000-0000-%012d", r.seq)
	r.props[p.ID] = r.clone(p)
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.props[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.clone(p), nil
}

func (r *memRepo) ListOrderedByCreation(_ context.Context, filter Filter) ([]*Property, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Property
	for _, p := range r.props {
		if filter.HostID == "" || p.HostID == filter.HostID {
			out = append(out, r.clone(p))
		}
	}
	return out, len(out), nil
}

func (r *memRepo) Update(_ context.Context, p *Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.props[p.ID]; !ok {
		return ErrNotFound
	}
	r.props[p.ID] = r.clone(p)
	return nil
}

func (r *memRepo) SetCustomPrices(_ context.Context, id string, prices map[calendar.Date]money.Amount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for d, a := range prices {
		r.props[id].CustomPricing[d] = a
	}
	return nil
}

func (r *memRepo) RemoveCustomPrices(_ context.Context, id string, dates []calendar.Date) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range dates {
		delete(r.props[id].CustomPricing, d)
	}
	return nil
}

func (r *memRepo) BlockDates(_ context.Context, id string, dates []calendar.Date) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.props[id]
	seen := map[calendar.Date]bool{}
	for _, d := range p.BlockedDates {
		seen[d] = true
	}
	for _, d := range dates {
		if !seen[d] {
			p.BlockedDates = append(p.BlockedDates, d)
			seen[d] = true
		}
	}
	sortDates(p.BlockedDates)
	return nil
}

func (r *memRepo) UnblockDates(_ context.Context, id string, dates []calendar.Date) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.props[id]
	drop := map[calendar.Date]bool{}
	for _, d := range dates {
		drop[d] = true
	}
	kept := p.BlockedDates[:0]
	for _, d := range p.BlockedDates {
		if !drop[d] {
			kept = append(kept, d)
		}
	}
	p.BlockedDates = kept
	return nil
}

const hostID = "11111111-1111-1111-1111-111111111111"

func newListing(t *testing.T, svc Service) *Property {
	t.Helper()
	p, err := svc.Create(context.Background(), CreateRequest{
		HostID:      hostID,
		Title:       "  Cabin by the lake ",
		BasePrice:   money.FromUnits(100),
		CleaningFee: money.FromUnits(50),
		MaxGuests:   4,
	})
	require.NoError(t, err)
	return p
}

func TestCreate_DefaultsAndTrims(t *testing.T) {
	svc := NewService(newMemRepo())
	p := newListing(t, svc)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Cabin by the lake", p.Title)
	assert.Equal(t, 1, p.MinimumStay)
	assert.Nil(t, p.MaximumStay)
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()
	bad := decimal.NewFromInt(120)
	two := 2

	cases := []struct {
		name string
		req  CreateRequest
		want error
	}{
		{"missing title", CreateRequest{Title: " ", BasePrice: 100, MaxGuests: 1}, ErrTitleRequired},
		{"zero price", CreateRequest{Title: "x", MaxGuests: 1}, ErrInvalidBasePrice},
		{"no guests", CreateRequest{Title: "x", BasePrice: 100}, ErrInvalidMaxGuests},
		{"discount over 100", CreateRequest{Title: "x", BasePrice: 100, MaxGuests: 1, WeeklyDiscount: &bad}, ErrInvalidDiscount},
		{"max below min", CreateRequest{Title: "x", BasePrice: 100, MaxGuests: 1, MinimumStay: 3, MaximumStay: &two}, ErrInvalidMaximumStay},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
			assert.True(t, apperror.IsValidation(err))
		})
	}
}

func TestUpdate_OnlyHost(t *testing.T) {
	svc := NewService(newMemRepo())
	p := newListing(t, svc)
	title := "Stolen"

	_, err := svc.Update(context.Background(), p.ID, "22222222-2222-2222-2222-222222222222", UpdateRequest{Title: &title})
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.True(t, apperror.IsAuthorization(err))
}

func TestUpdate_SetAndClearOptionalFields(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()
	p := newListing(t, svc)

	weekend := money.FromUnits(150)
	weekly := decimal.NewFromInt(10)
	updated, err := svc.Update(ctx, p.ID, hostID, UpdateRequest{WeekendPrice: &weekend, WeeklyDiscount: &weekly})
	require.NoError(t, err)
	require.NotNil(t, updated.WeekendPrice)
	assert.Equal(t, weekend, *updated.WeekendPrice)
	assert.True(t, weekly.Equal(*updated.WeeklyDiscount))

	cleared, err := svc.Update(ctx, p.ID, hostID, UpdateRequest{ClearWeekendPrice: true})
	require.NoError(t, err)
	assert.Nil(t, cleared.WeekendPrice)
	assert.NotNil(t, cleared.WeeklyDiscount)
}

func TestCalendarEdits(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()
	p := newListing(t, svc)

	d1 := calendar.MustParse("2025-07-04")
	d2 := calendar.MustParse("2025-07-05")

	got, err := svc.SetCustomPrices(ctx, p.ID, hostID, map[calendar.Date]money.Amount{d1: money.FromUnits(250)})
	require.NoError(t, err)
	assert.Equal(t, money.FromUnits(250), got.CustomPricing[d1])

	got, err = svc.RemoveCustomPrices(ctx, p.ID, hostID, []calendar.Date{d1})
	require.NoError(t, err)
	assert.Empty(t, got.CustomPricing)

	got, err = svc.BlockDates(ctx, p.ID, hostID, []calendar.Date{d2, d1, d2})
	require.NoError(t, err)
	assert.Equal(t, []calendar.Date{d1, d2}, got.BlockedDates)

	stay, err := calendar.NewRange(d2, d2.AddDays(2))
	require.NoError(t, err)
	assert.True(t, got.HasBlockedDateIn(stay))

	got, err = svc.UnblockDates(ctx, p.ID, hostID, []calendar.Date{d2})
	require.NoError(t, err)
	assert.Equal(t, []calendar.Date{d1}, got.BlockedDates)
	assert.False(t, got.HasBlockedDateIn(stay))
}

func TestCalendarEdits_Rejections(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()
	p := newListing(t, svc)

	_, err := svc.BlockDates(ctx, p.ID, hostID, nil)
	assert.ErrorIs(t, err, ErrNoDates)

	_, err = svc.SetCustomPrices(ctx, p.ID, hostID, map[calendar.Date]money.Amount{calendar.MustParse("2025-01-01"): 0})
	assert.ErrorIs(t, err, ErrInvalidBasePrice)

	_, err = svc.BlockDates(ctx, p.ID, "someone-else", []calendar.Date{calendar.MustParse("2025-01-01")})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = svc.BlockDates(ctx, "missing", hostID, []calendar.Date{calendar.MustParse("2025-01-01")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHasBlockedDateIn_HalfOpen(t *testing.T) {
	p := &Property{BlockedDates: []calendar.Date{calendar.MustParse("2025-03-10")}}

	before, _ := calendar.NewRange(calendar.MustParse("2025-03-08"), calendar.MustParse("2025-03-10"))
	after, _ := calendar.NewRange(calendar.MustParse("2025-03-11"), calendar.MustParse("2025-03-12"))
	spanning, _ := calendar.NewRange(calendar.MustParse("2025-03-09"), calendar.MustParse("2025-03-11"))

	assert.False(t, p.HasBlockedDateIn(before), "check-out night is not occupied")
	assert.False(t, p.HasBlockedDateIn(after))
	assert.True(t, p.HasBlockedDateIn(spanning))
}
