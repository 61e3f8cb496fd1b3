package booking

// Role is a participant's relation to a booking.
type Role uint8

const (
	RoleGuest Role = 1 << iota
	RoleHost
)

// transitions is closed: anything missing, including every move out of cancelled, is rejected.
var transitions = map[Status]map[Status]Role{
	StatusPending: {
		StatusConfirmed: RoleHost,
		StatusCancelled: RoleGuest | RoleHost,
	},
	StatusConfirmed: {
		StatusCancelled: RoleGuest | RoleHost,
	},
}

// eventActors lists who may ever request a move into a status.
var eventActors = map[Status]Role{
	StatusConfirmed: RoleHost,
	StatusCancelled: RoleGuest | RoleHost,
}

// RoleOf returns how userID relates to b, or 0 for a stranger.
func (b *Booking) RoleOf(userID string) Role {
	if userID == "" {
		return 0
	}
	var r Role
	if b.GuestID == userID {
		r |= RoleGuest
	}
	if b.HostID == userID {
		r |= RoleHost
	}
	return r
}

// CanTransition reports whether the table has an edge from -> to.
func CanTransition(from, to Status) bool {
	_, ok := transitions[from][to]
	return ok
}

// checkTransition applies authorization first and the state table second,
// so a guest trying to confirm is told they lack the role even on a cancelled booking.
func checkTransition(b *Booking, to Status, actorID string) error {
	role := b.RoleOf(actorID)
	if role == 0 {
		return ErrPermissionDenied
	}
	allowed, ok := eventActors[to]
	if !ok {
		return ErrInvalidTransition
	}
	if role&allowed == 0 {
		return ErrPermissionDenied
	}
	if !CanTransition(b.Status, to) {
		return ErrInvalidTransition
	}
	return nil
}
