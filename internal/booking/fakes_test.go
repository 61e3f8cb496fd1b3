package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/stay-booking-backend/internal/property"
)

type fakeProperties struct {
	mu    sync.Mutex
	props map[string]*property.Property
	err   error
}

func newFakeProperties(props ...*property.Property) *fakeProperties {
	f := &fakeProperties{props: map[string]*property.Property{}}
	for _, p := range props {
		f.props[p.ID] = p
	}
	return f
}

func (f *fakeProperties) GetByID(_ context.Context, id string) (*property.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.props[id]
	if !ok {
		return nil, property.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// memRepo mirrors the transactional create of the pgx repository behind one mutex.
type memRepo struct {
	mu         sync.Mutex
	seq        int
	bookings   map[string]*Booking
	properties *fakeProperties
	listErr    error
}

func newMemRepo(props *fakeProperties) *memRepo {
	return &memRepo{bookings: map[string]*Booking{}, properties: props}
}

func (r *memRepo) copyOf(b *Booking) *Booking {
	cp := *b
	return &cp
}

func (r *memRepo) Create(ctx context.Context, d Draft) (*Booking, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.properties.GetByID(ctx, d.PropertyID)
	if err != nil {
		return nil, false, ErrPropertyNotFound
	}
	for _, b := range r.bookings {
		if b.GuestID == d.GuestID && b.RequestToken == d.RequestToken {
			replay, err := d.replayOf(r.copyOf(b))
			return replay, err == nil, err
		}
	}
	if p.HasBlockedDateIn(d.Stay) {
		return nil, false, ErrDatesUnavailable
	}
	for _, b := range r.bookings {
		if b.PropertyID == d.PropertyID && b.Overlaps(d.Stay) {
			return nil, false, ErrDatesUnavailable
		}
	}
	for _, b := range r.bookings {
		if b.PropertyID == d.PropertyID && b.GuestID == d.GuestID && b.Status.IsActive() && b.CheckOut.After(d.Today) {
			return nil, false, ErrDuplicateActiveBooking
		}
	}

	r.seq++
	b := d.booking()
	b.ID = fmt.Sprintf("b-%03d", r.seq)
	r.bookings[b.ID] = b
	return r.copyOf(b), false, nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.copyOf(b), nil
}

func (r *memRepo) filter(keep func(*Booking) bool) []*Booking {
	var out []*Booking
	for _, b := range r.bookings {
		if keep(b) {
			out = append(out, r.copyOf(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *memRepo) ListByProperty(_ context.Context, propertyID string, statuses ...Status) ([]*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.filter(func(b *Booking) bool {
		if b.PropertyID != propertyID {
			return false
		}
		if len(statuses) == 0 {
			return true
		}
		for _, s := range statuses {
			if b.Status == s {
				return true
			}
		}
		return false
	}), nil
}

func (r *memRepo) ListByGuest(_ context.Context, guestID string) ([]*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(b *Booking) bool { return b.GuestID == guestID }), nil
}

func (r *memRepo) ListByHost(_ context.Context, hostID string) ([]*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(b *Booking) bool { return b.HostID == hostID }), nil
}

func (r *memRepo) ListOrderedByCreation(_ context.Context, f Filter) ([]*Booking, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.filter(func(b *Booking) bool {
		return (f.GuestID == "" || b.GuestID == f.GuestID) &&
			(f.HostID == "" || b.HostID == f.HostID) &&
			(f.PropertyID == "" || b.PropertyID == f.PropertyID)
	})
	return out, len(out), nil
}

func (r *memRepo) UpdateStatus(_ context.Context, id string, u StatusUpdate) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	if b.Status != u.From {
		return nil, ErrStatusChanged
	}
	b.Status = u.To
	b.UpdatedAt = u.At
	if u.To == StatusCancelled {
		at, actor := u.At, u.ActorID
		b.CancelledAt = &at
		b.CancellationReason = u.Reason
		b.CancelledBy = &actor
	}
	return r.copyOf(b), nil
}

type countingRecorder struct {
	mu          sync.Mutex
	created     map[string]int
	conflicts   map[string]int
	transitions map[string]int
	failures    int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{created: map[string]int{}, conflicts: map[string]int{}, transitions: map[string]int{}}
}

func (c *countingRecorder) BookingCreated(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.created[status]++
}

func (c *countingRecorder) BookingConflict(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conflicts[reason]++
}

func (c *countingRecorder) BookingTransitioned(from, to string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transitions[from+"->"+to]++
}

func (c *countingRecorder) EventPublishFailed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures++
}

var errStorageDown = apperror.Persistence(fmt.Errorf("connection refused"), true)
