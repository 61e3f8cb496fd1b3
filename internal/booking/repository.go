package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/stay-booking-backend/internal/db"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/calendar"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/money"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/retry"
)

// Repository defines methods for accessing booking data from storage.
type Repository interface {
	// Create re-validates the draft against live data under a lock on the property and inserts it.
	// A second call with the same guest and request token returns the first booking with replayed set,
	// or ErrRequestTokenReused when the token was first used for a different property, stay or party.
	Create(ctx context.Context, d Draft) (b *Booking, replayed bool, err error)
	GetByID(ctx context.Context, id string) (*Booking, error)
	// ListByProperty returns the property's bookings in the given statuses, or all when none are given.
	ListByProperty(ctx context.Context, propertyID string, statuses ...Status) ([]*Booking, error)
	ListByGuest(ctx context.Context, guestID string) ([]*Booking, error)
	ListByHost(ctx context.Context, hostID string) ([]*Booking, error)
	// ListOrderedByCreation returns newest first, ties broken by id.
	ListOrderedByCreation(ctx context.Context, filter Filter) ([]*Booking, int, error)
	// UpdateStatus fails with ErrStatusChanged when the booking is no longer in u.From.
	UpdateStatus(ctx context.Context, id string, u StatusUpdate) (*Booking, error)
}

type pgxRepository struct {
	pool  *pgxpool.Pool
	retry retry.Policy
}

// NewPgxRepository creates a new Repository implementation using pgxpool.
func NewPgxRepository(pool *pgxpool.Pool, policy retry.Policy) Repository {
	return &pgxRepository{pool: pool, retry: policy}
}

const (
	constraintNoOverlap    = "bookings_no_overlap"
	constraintRequestToken = "bookings_guest_request_token_key"
)

var bookingColumns = []string{
	"id", "property_id", "host_id", "guest_id", "check_in", "check_out",
	"adults", "children", "infants",
	"nightly_rate_cents", "nights", "subtotal_cents", "cleaning_fee_cents",
	"service_fee_cents", "taxes_cents", "total_cents",
	"status", "payment_status", "special_requests", "request_token",
	"created_at", "updated_at", "cancelled_at", "cancellation_reason", "cancelled_by",
}

func psql() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func statusArgs(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func scanBooking(row pgx.Row, extra ...any) (*Booking, error) {
	var (
		b                 Booking
		checkIn, checkOut time.Time
		nightly, subtotal int64
		cleaning, service int64
		taxes, total      int64
		status            string
	)

	dest := []any{
		&b.ID, &b.PropertyID, &b.HostID, &b.GuestID, &checkIn, &checkOut,
		&b.Guests.Adults, &b.Guests.Children, &b.Guests.Infants,
		&nightly, &b.Pricing.Nights, &subtotal, &cleaning,
		&service, &taxes, &total,
		&status, &b.PaymentStatus, &b.SpecialRequests, &b.RequestToken,
		&b.CreatedAt, &b.UpdatedAt, &b.CancelledAt, &b.CancellationReason, &b.CancelledBy,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	b.CheckIn = calendar.Of(checkIn)
	b.CheckOut = calendar.Of(checkOut)
	b.Status = Status(status)
	b.Pricing.NightlyRate = money.Cents(nightly)
	b.Pricing.Subtotal = money.Cents(subtotal)
	b.Pricing.CleaningFee = money.Cents(cleaning)
	b.Pricing.ServiceFee = money.Cents(service)
	b.Pricing.Taxes = money.Cents(taxes)
	b.Pricing.Total = money.Cents(total)
	return &b, nil
}

func (r *pgxRepository) Create(ctx context.Context, d Draft) (*Booking, bool, error) {
	var (
		created  *Booking
		replayed bool
	)

	err := retry.Do(ctx, r.retry, "create booking", func() error {
		created, replayed = nil, false
		err := db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
			var err error
			created, replayed, err = createInTx(ctx, tx, d)
			return err
		})
		if err == nil {
			return nil
		}

		switch {
		case db.PgCode(err) == pgerrcode.ExclusionViolation && db.ConstraintName(err) == constraintNoOverlap:
			return ErrDatesUnavailable
		case db.PgCode(err) == pgerrcode.UniqueViolation && db.ConstraintName(err) == constraintRequestToken:
			// Lost a race with the same request; the winner is committed now.
			existing, lookupErr := findByToken(ctx, r.pool, d.GuestID, d.RequestToken)
			if lookupErr != nil {
				return db.Classify(lookupErr)
			}
			if existing == nil {
				return db.Classify(fmt.Errorf("create booking failed: %w", err))
			}
			if created, err = d.replayOf(existing); err != nil {
				return err
			}
			replayed = true
			return nil
		}
		return db.Classify(fmt.Errorf("create booking failed: %w", err))
	})
	if err != nil {
		return nil, false, err
	}
	return created, replayed, nil
}

func createInTx(ctx context.Context, tx pgx.Tx, d Draft) (*Booking, bool, error) {
	// Serializes creates per property.
	lockSQL, lockArgs, err := psql().Select("id").
		From("public.properties").
		Where(squirrel.Eq{"id": d.PropertyID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("build lock property query failed: %w", err)
	}
	var locked string
	if err := tx.QueryRow(ctx, lockSQL, lockArgs...).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, ErrPropertyNotFound
		}
		return nil, false, err
	}

	existing, err := findByToken(ctx, tx, d.GuestID, d.RequestToken)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		b, err := d.replayOf(existing)
		return b, err == nil, err
	}

	checkIn, checkOut := d.Stay.CheckIn.Time(), d.Stay.CheckOut.Time()

	blocked, err := exists(ctx, tx, psql().Select("1").
		From("public.property_blocked_dates").
		Where(squirrel.Eq{"property_id": d.PropertyID}).
		Where(squirrel.GtOrEq{"date": checkIn}).
		Where(squirrel.Lt{"date": checkOut}))
	if err != nil {
		return nil, false, err
	}
	if blocked {
		return nil, false, ErrDatesUnavailable
	}

	overlap, err := exists(ctx, tx, psql().Select("1").
		From("public.bookings").
		Where(squirrel.Eq{"property_id": d.PropertyID}).
		Where(squirrel.Eq{"status": statusArgs(ActiveStatuses)}).
		Where(squirrel.Lt{"check_in": checkOut}).
		Where(squirrel.Gt{"check_out": checkIn}))
	if err != nil {
		return nil, false, err
	}
	if overlap {
		return nil, false, ErrDatesUnavailable
	}

	duplicate, err := exists(ctx, tx, psql().Select("1").
		From("public.bookings").
		Where(squirrel.Eq{"property_id": d.PropertyID, "guest_id": d.GuestID}).
		Where(squirrel.Eq{"status": statusArgs(ActiveStatuses)}).
		Where(squirrel.Gt{"check_out": d.Today.Time()}))
	if err != nil {
		return nil, false, err
	}
	if duplicate {
		return nil, false, ErrDuplicateActiveBooking
	}

	b := d.booking()
	p := b.Pricing
	query, args, err := psql().Insert("public.bookings").
		Columns(
			"property_id", "host_id", "guest_id", "check_in", "check_out",
			"adults", "children", "infants",
			"nightly_rate_cents", "nights", "subtotal_cents", "cleaning_fee_cents",
			"service_fee_cents", "taxes_cents", "total_cents",
			"status", "payment_status", "special_requests", "request_token",
		).
		Values(
			b.PropertyID, b.HostID, b.GuestID, checkIn, checkOut,
			b.Guests.Adults, b.Guests.Children, b.Guests.Infants,
			p.NightlyRate.Cents(), p.Nights, p.Subtotal.Cents(), p.CleaningFee.Cents(),
			p.ServiceFee.Cents(), p.Taxes.Cents(), p.Total.Cents(),
			string(b.Status), b.PaymentStatus, b.SpecialRequests, b.RequestToken,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("build create booking query failed: %w", err)
	}
	if err := tx.QueryRow(ctx, query, args...).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, false, err
	}
	return b, false, nil
}

func exists(ctx context.Context, q db.Querier, sub squirrel.SelectBuilder) (bool, error) {
	query, args, err := psql().Select().
		Column(squirrel.Expr("EXISTS(?)", sub.Limit(1))).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists query failed: %w", err)
	}
	var found bool
	if err := q.QueryRow(ctx, query, args...).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}

func findByToken(ctx context.Context, q db.Querier, guestID, token string) (*Booking, error) {
	query, args, err := psql().Select(bookingColumns...).
		From("public.bookings").
		Where(squirrel.Eq{"guest_id": guestID, "request_token": token}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find booking by token query failed: %w", err)
	}
	b, err := scanBooking(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find booking by token failed: %w", err)
	}
	return b, nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	var b *Booking
	err := retry.Do(ctx, r.retry, "get booking", func() error {
		var err error
		b, err = getByID(ctx, r.pool, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func getByID(ctx context.Context, q db.Querier, id string) (*Booking, error) {
	query, args, err := psql().Select(bookingColumns...).
		From("public.bookings").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	b, err := scanBooking(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, db.Classify(fmt.Errorf("get booking failed: %w", err))
	}
	return b, nil
}

func (r *pgxRepository) ListByProperty(ctx context.Context, propertyID string, statuses ...Status) ([]*Booking, error) {
	builder := psql().Select(bookingColumns...).
		From("public.bookings").
		Where(squirrel.Eq{"property_id": propertyID}).
		OrderBy("check_in ASC", "id ASC")
	if len(statuses) > 0 {
		builder = builder.Where(squirrel.Eq{"status": statusArgs(statuses)})
	}
	return r.list(ctx, "list bookings by property", builder)
}

func (r *pgxRepository) ListByGuest(ctx context.Context, guestID string) ([]*Booking, error) {
	builder := psql().Select(bookingColumns...).
		From("public.bookings").
		Where(squirrel.Eq{"guest_id": guestID}).
		OrderBy("created_at DESC", "id DESC")
	return r.list(ctx, "list bookings by guest", builder)
}

func (r *pgxRepository) ListByHost(ctx context.Context, hostID string) ([]*Booking, error) {
	builder := psql().Select(bookingColumns...).
		From("public.bookings").
		Where(squirrel.Eq{"host_id": hostID}).
		OrderBy("created_at DESC", "id DESC")
	return r.list(ctx, "list bookings by host", builder)
}

func (r *pgxRepository) list(ctx context.Context, op string, builder squirrel.SelectBuilder) ([]*Booking, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s query failed: %w", op, err)
	}

	var bookings []*Booking
	err = retry.Do(ctx, r.retry, op, func() error {
		bookings = nil
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return db.Classify(fmt.Errorf("%s failed: %w", op, err))
		}
		defer rows.Close()

		for rows.Next() {
			b, err := scanBooking(rows)
			if err != nil {
				return db.Classify(fmt.Errorf("scan booking failed: %w", err))
			}
			bookings = append(bookings, b)
		}
		return db.Classify(rows.Err())
	})
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *pgxRepository) ListOrderedByCreation(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	builder := psql().Select(append(bookingColumns, "count(*) OVER() AS total_count")...).
		From("public.bookings")

	if filter.GuestID != "" {
		builder = builder.Where(squirrel.Eq{"guest_id": filter.GuestID})
	}
	if filter.HostID != "" {
		builder = builder.Where(squirrel.Eq{"host_id": filter.HostID})
	}
	if filter.PropertyID != "" {
		builder = builder.Where(squirrel.Eq{"property_id": filter.PropertyID})
	}
	if len(filter.Statuses) > 0 {
		builder = builder.Where(squirrel.Eq{"status": statusArgs(filter.Statuses)})
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	query, args, err := builder.
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(filter.PageSize)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list bookings query failed: %w", err)
	}

	var (
		bookings []*Booking
		total    int
	)
	err = retry.Do(ctx, r.retry, "list bookings", func() error {
		bookings, total = nil, 0
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return db.Classify(fmt.Errorf("list bookings failed: %w", err))
		}
		defer rows.Close()

		for rows.Next() {
			b, err := scanBooking(rows, &total)
			if err != nil {
				return db.Classify(fmt.Errorf("scan booking failed: %w", err))
			}
			bookings = append(bookings, b)
		}
		return db.Classify(rows.Err())
	})
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

func (r *pgxRepository) UpdateStatus(ctx context.Context, id string, u StatusUpdate) (*Booking, error) {
	builder := psql().Update("public.bookings").
		Set("status", string(u.To)).
		Set("updated_at", u.At).
		Where(squirrel.Eq{"id": id, "status": string(u.From)})
	if u.To == StatusCancelled {
		builder = builder.
			Set("cancelled_at", u.At).
			Set("cancellation_reason", u.Reason).
			Set("cancelled_by", u.ActorID)
	}

	query, args, err := builder.
		Suffix("RETURNING " + strings.Join(bookingColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update booking status query failed: %w", err)
	}

	var (
		b        *Booking
		attempts int
	)
	err = retry.Do(ctx, r.retry, "update booking status", func() error {
		attempts++
		var err error
		b, err = scanBooking(r.pool.QueryRow(ctx, query, args...))
		if err == nil {
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return db.Classify(fmt.Errorf("update booking status failed: %w", err))
		}
		// Nothing matched: the booking is gone, someone else moved it first, or an earlier
		// attempt committed before its acknowledgement was lost.
		current, getErr := getByID(ctx, r.pool, id)
		if getErr != nil {
			return getErr
		}
		b, err = resolveMissedUpdate(current, u, attempts > 1)
		if errors.Is(err, errUpdateNotApplied) {
			return db.Classify(fmt.Errorf("update booking status failed: %w", pgx.ErrNoRows))
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

var errUpdateNotApplied = errors.New("booking status update matched no row")

// resolveMissedUpdate explains a compare-and-set that matched no row. On a retry the row may
// already hold this very update, which then counts as applied.
func resolveMissedUpdate(current *Booking, u StatusUpdate, retried bool) (*Booking, error) {
	if retried && u.appliedTo(current) {
		return current, nil
	}
	if current.Status != u.From {
		return nil, ErrStatusChanged
	}
	return nil, errUpdateNotApplied
}
