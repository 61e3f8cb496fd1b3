package booking

import (
	"context"
	"log"
	"time"

	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/calendar"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/money"
)

const (
	EventCreated   = "booking.created"
	EventConfirmed = "booking.confirmed"
	EventCancelled = "booking.cancelled"
)

// Event is the message body published for every lifecycle change.
type Event struct {
	Type       string        `json:"type"`
	BookingID  string        `json:"booking_id"`
	PropertyID string        `json:"property_id"`
	GuestID    string        `json:"guest_id"`
	HostID     string        `json:"host_id"`
	Status     Status        `json:"status"`
	CheckIn    calendar.Date `json:"check_in"`
	CheckOut   calendar.Date `json:"check_out"`
	Total      money.Amount  `json:"total"`
	Reason     *string       `json:"reason,omitempty"`
	ActorID    string        `json:"actor_id,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

func newEvent(eventType string, b *Booking, actorID string, at time.Time) Event {
	return Event{
		Type:       eventType,
		BookingID:  b.ID,
		PropertyID: b.PropertyID,
		GuestID:    b.GuestID,
		HostID:     b.HostID,
		Status:     b.Status,
		CheckIn:    b.CheckIn,
		CheckOut:   b.CheckOut,
		Total:      b.Pricing.Total,
		Reason:     b.CancellationReason,
		ActorID:    actorID,
		OccurredAt: at,
	}
}

func eventFor(to Status) string {
	switch to {
	case StatusConfirmed:
		return EventConfirmed
	case StatusCancelled:
		return EventCancelled
	}
	return ""
}

// publish is best-effort: the booking is already committed, so a broker outage only costs the notification.
func (s *service) publish(ctx context.Context, e Event) {
	if err := s.publisher.Publish(ctx, e.Type, e); err != nil {
		log.Printf("publish %s for booking %s failed: %v", e.Type, e.BookingID, err)
		s.recorder.EventPublishFailed()
	}
}
