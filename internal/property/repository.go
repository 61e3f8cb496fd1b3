package property

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/nekogravitycat/stay-booking-backend/internal/db"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/calendar"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/money"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/retry"
)

// Repository defines methods for accessing property data from storage.
// Records are never cached; every call reads the live row.
type Repository interface {
	Create(ctx context.Context, p *Property) error
	// GetByID loads the property with its custom prices and blocked dates.
	GetByID(ctx context.Context, id string) (*Property, error)
	// ListOrderedByCreation returns newest first, ties broken by id. Calendar data is not loaded.
	ListOrderedByCreation(ctx context.Context, filter Filter) ([]*Property, int, error)
	Update(ctx context.Context, p *Property) error
	SetCustomPrices(ctx context.Context, id string, prices map[calendar.Date]money.Amount) error
	RemoveCustomPrices(ctx context.Context, id string, dates []calendar.Date) error
	BlockDates(ctx context.Context, id string, dates []calendar.Date) error
	UnblockDates(ctx context.Context, id string, dates []calendar.Date) error
}

type pgxRepository struct {
	pool  *pgxpool.Pool
	retry retry.Policy
}

// NewPgxRepository creates a new Repository implementation using pgxpool.
func NewPgxRepository(pool *pgxpool.Pool, policy retry.Policy) Repository {
	return &pgxRepository{pool: pool, retry: policy}
}

var propertyColumns = []string{
	"id", "host_id", "title", "description",
	"base_price_cents", "weekend_price_cents", "cleaning_fee_cents",
	"weekly_discount::text", "monthly_discount::text",
	"max_guests", "minimum_stay", "maximum_stay", "instant_book",
	"created_at", "updated_at",
}

func psql() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func numericArg(d *decimal.Decimal) any {
	if d == nil {
		return squirrel.Expr("NULL::numeric")
	}
	return squirrel.Expr("?::numeric", d.String())
}

func amountArg(a *money.Amount) *int64 {
	if a == nil {
		return nil
	}
	c := a.Cents()
	return &c
}

func scanProperty(row pgx.Row, extra ...any) (*Property, error) {
	var (
		p              Property
		basePrice      int64
		weekendPrice   *int64
		cleaningFee    int64
		weeklyDiscount *string
		monthlyDisc    *string
	)

	dest := []any{
		&p.ID, &p.HostID, &p.Title, &p.Description,
		&basePrice, &weekendPrice, &cleaningFee,
		&weeklyDiscount, &monthlyDisc,
		&p.MaxGuests, &p.MinimumStay, &p.MaximumStay, &p.InstantBook,
		&p.CreatedAt, &p.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	p.BasePrice = money.Cents(basePrice)
	p.CleaningFee = money.Cents(cleaningFee)
	if weekendPrice != nil {
		wp := money.Cents(*weekendPrice)
		p.WeekendPrice = &wp
	}

	var err error
	if p.WeeklyDiscount, err = parseNumeric(weeklyDiscount); err != nil {
		return nil, err
	}
	if p.MonthlyDiscount, err = parseNumeric(monthlyDisc); err != nil {
		return nil, err
	}
	return &p, nil
}

func parseNumeric(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, fmt.Errorf("parse numeric %q failed: %w", *s, err)
	}
	return &d, nil
}

func (r *pgxRepository) Create(ctx context.Context, p *Property) error {
	query, args, err := psql().Insert("public.properties").
		Columns(
			"host_id", "title", "description",
			"base_price_cents", "weekend_price_cents", "cleaning_fee_cents",
			"weekly_discount", "monthly_discount",
			"max_guests", "minimum_stay", "maximum_stay", "instant_book",
		).
		Values(
			p.HostID, p.Title, p.Description,
			p.BasePrice.Cents(), amountArg(p.WeekendPrice), p.CleaningFee.Cents(),
			numericArg(p.WeeklyDiscount), numericArg(p.MonthlyDiscount),
			p.MaxGuests, p.MinimumStay, p.MaximumStay, p.InstantBook,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create property query failed: %w", err)
	}

	return retry.Do(ctx, r.retry, "create property", func() error {
		if err := r.pool.QueryRow(ctx, query, args...).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return db.Classify(fmt.Errorf("create property failed: %w", err))
		}
		return nil
	})
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Property, error) {
	var p *Property
	err := retry.Do(ctx, r.retry, "get property", func() error {
		var err error
		p, err = getByID(ctx, r.pool, id)
		return err
	})
	return p, err
}

func getByID(ctx context.Context, q db.Querier, id string) (*Property, error) {
	query, args, err := psql().Select(propertyColumns...).
		From("public.properties").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get property query failed: %w", err)
	}

	p, err := scanProperty(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, db.Classify(fmt.Errorf("get property failed: %w", err))
	}

	if p.CustomPricing, err = loadCustomPrices(ctx, q, id); err != nil {
		return nil, err
	}
	if p.BlockedDates, err = loadBlockedDates(ctx, q, id); err != nil {
		return nil, err
	}
	return p, nil
}

func loadCustomPrices(ctx context.Context, q db.Querier, id string) (map[calendar.Date]money.Amount, error) {
	rows, err := q.Query(ctx,
		`SELECT date, price_cents FROM public.property_custom_prices WHERE property_id = $1 ORDER BY date`, id)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("list custom prices failed: %w", err))
	}
	defer rows.Close()

	prices := make(map[calendar.Date]money.Amount)
	for rows.Next() {
		var (
			day   time.Time
			cents int64
		)
		if err := rows.Scan(&day, &cents); err != nil {
			return nil, db.Classify(fmt.Errorf("scan custom price failed: %w", err))
		}
		prices[calendar.Of(day)] = money.Cents(cents)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(fmt.Errorf("iterate custom prices failed: %w", err))
	}
	return prices, nil
}

func loadBlockedDates(ctx context.Context, q db.Querier, id string) ([]calendar.Date, error) {
	rows, err := q.Query(ctx,
		`SELECT date FROM public.property_blocked_dates WHERE property_id = $1 ORDER BY date`, id)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("list blocked dates failed: %w", err))
	}
	defer rows.Close()

	var dates []calendar.Date
	for rows.Next() {
		var day time.Time
		if err := rows.Scan(&day); err != nil {
			return nil, db.Classify(fmt.Errorf("scan blocked date failed: %w", err))
		}
		dates = append(dates, calendar.Of(day))
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(fmt.Errorf("iterate blocked dates failed: %w", err))
	}
	return dates, nil
}

func (r *pgxRepository) ListOrderedByCreation(ctx context.Context, filter Filter) ([]*Property, int, error) {
	query := psql().Select(append(propertyColumns, "count(*) OVER() AS total_count")...).
		From("public.properties")

	if filter.HostID != "" {
		query = query.Where(squirrel.Eq{"host_id": filter.HostID})
	}

	// Pagination
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	sql, args, err := query.
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(filter.PageSize)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list properties query failed: %w", err)
	}

	var (
		properties []*Property
		total      int
	)
	err = retry.Do(ctx, r.retry, "list properties", func() error {
		properties, total = nil, 0

		rows, err := r.pool.Query(ctx, sql, args...)
		if err != nil {
			return db.Classify(fmt.Errorf("list properties failed: %w", err))
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanProperty(rows, &total)
			if err != nil {
				return db.Classify(fmt.Errorf("scan property failed: %w", err))
			}
			properties = append(properties, p)
		}
		return db.Classify(rows.Err())
	})
	if err != nil {
		return nil, 0, err
	}
	return properties, total, nil
}

func (r *pgxRepository) Update(ctx context.Context, p *Property) error {
	query, args, err := psql().Update("public.properties").
		Set("title", p.Title).
		Set("description", p.Description).
		Set("base_price_cents", p.BasePrice.Cents()).
		Set("weekend_price_cents", amountArg(p.WeekendPrice)).
		Set("cleaning_fee_cents", p.CleaningFee.Cents()).
		Set("weekly_discount", numericArg(p.WeeklyDiscount)).
		Set("monthly_discount", numericArg(p.MonthlyDiscount)).
		Set("max_guests", p.MaxGuests).
		Set("minimum_stay", p.MinimumStay).
		Set("maximum_stay", p.MaximumStay).
		Set("instant_book", p.InstantBook).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": p.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update property query failed: %w", err)
	}

	return retry.Do(ctx, r.retry, "update property", func() error {
		if err := r.pool.QueryRow(ctx, query, args...).Scan(&p.UpdatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return db.Classify(fmt.Errorf("update property failed: %w", err))
		}
		return nil
	})
}

func (r *pgxRepository) SetCustomPrices(ctx context.Context, id string, prices map[calendar.Date]money.Amount) error {
	builder := psql().Insert("public.property_custom_prices").
		Columns("property_id", "date", "price_cents").
		Suffix("ON CONFLICT (property_id, date) DO UPDATE SET price_cents = EXCLUDED.price_cents")
	for d, price := range prices {
		builder = builder.Values(id, d.Time(), price.Cents())
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build set custom prices query failed: %w", err)
	}
	return r.execTouching(ctx, "set custom prices", id, query, args)
}

func (r *pgxRepository) RemoveCustomPrices(ctx context.Context, id string, dates []calendar.Date) error {
	query, args, err := psql().Delete("public.property_custom_prices").
		Where(squirrel.Eq{"property_id": id}).
		Where(squirrel.Eq{"date": dateArgs(dates)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build remove custom prices query failed: %w", err)
	}
	return r.execTouching(ctx, "remove custom prices", id, query, args)
}

func (r *pgxRepository) BlockDates(ctx context.Context, id string, dates []calendar.Date) error {
	builder := psql().Insert("public.property_blocked_dates").
		Columns("property_id", "date").
		Suffix("ON CONFLICT DO NOTHING")
	for _, d := range dates {
		builder = builder.Values(id, d.Time())
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build block dates query failed: %w", err)
	}
	return r.execTouching(ctx, "block dates", id, query, args)
}

func (r *pgxRepository) UnblockDates(ctx context.Context, id string, dates []calendar.Date) error {
	query, args, err := psql().Delete("public.property_blocked_dates").
		Where(squirrel.Eq{"property_id": id}).
		Where(squirrel.Eq{"date": dateArgs(dates)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build unblock dates query failed: %w", err)
	}
	return r.execTouching(ctx, "unblock dates", id, query, args)
}

// execTouching runs a calendar write and bumps the property's updated_at in one transaction.
func (r *pgxRepository) execTouching(ctx context.Context, op, id, query string, args []any) error {
	return retry.Do(ctx, r.retry, op, func() error {
		err := db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
			ct, err := tx.Exec(ctx, `UPDATE public.properties SET updated_at = now() WHERE id = $1`, id)
			if err != nil {
				return err
			}
			if ct.RowsAffected() == 0 {
				return ErrNotFound
			}
			_, err = tx.Exec(ctx, query, args...)
			return err
		})
		if err != nil {
			return db.Classify(fmt.Errorf("%s failed: %w", op, err))
		}
		return nil
	})
}

func dateArgs(dates []calendar.Date) []time.Time {
	out := make([]time.Time, len(dates))
	for i, d := range dates {
		out[i] = d.Time()
	}
	return out
}
