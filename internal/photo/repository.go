package photo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/stay-booking-backend/internal/db"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/retry"
)

type Repository interface {
	Create(ctx context.Context, p *Photo) error
	GetByID(ctx context.Context, id string) (*Photo, error)
	// ListByProperty returns photos in upload order.
	ListByProperty(ctx context.Context, propertyID string) ([]*Photo, error)
	Delete(ctx context.Context, id string) error
}

type pgxRepository struct {
	pool  *pgxpool.Pool
	retry retry.Policy
}

func NewPgxRepository(pool *pgxpool.Pool, policy retry.Policy) Repository {
	return &pgxRepository{pool: pool, retry: policy}
}

var photoColumns = []string{
	"id", "property_id", "uploaded_by", "filename", "storage_path",
	"thumbnail_path", "content_type", "size", "created_at",
}

func psql() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func scanPhoto(row pgx.Row) (*Photo, error) {
	var p Photo
	err := row.Scan(
		&p.ID,
		&p.PropertyID,
		&p.UploadedBy,
		&p.Filename,
		&p.StoragePath,
		&p.ThumbnailPath,
		&p.ContentType,
		&p.Size,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *pgxRepository) Create(ctx context.Context, p *Photo) error {
	query, args, err := psql().Insert("public.photos").
		Columns("id", "property_id", "uploaded_by", "filename", "storage_path", "thumbnail_path", "content_type", "size").
		Values(p.ID, p.PropertyID, p.UploadedBy, p.Filename, p.StoragePath, p.ThumbnailPath, p.ContentType, p.Size).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create photo query failed: %w", err)
	}

	return retry.Do(ctx, r.retry, "create photo", func() error {
		if err := r.pool.QueryRow(ctx, query, args...).Scan(&p.CreatedAt); err != nil {
			return db.Classify(fmt.Errorf("create photo failed: %w", err))
		}
		return nil
	})
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Photo, error) {
	query, args, err := psql().Select(photoColumns...).
		From("public.photos").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get photo query failed: %w", err)
	}

	var p *Photo
	err = retry.Do(ctx, r.retry, "get photo", func() error {
		var err error
		p, err = scanPhoto(r.pool.QueryRow(ctx, query, args...))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return db.Classify(fmt.Errorf("get photo failed: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *pgxRepository) ListByProperty(ctx context.Context, propertyID string) ([]*Photo, error) {
	query, args, err := psql().Select(photoColumns...).
		From("public.photos").
		Where(squirrel.Eq{"property_id": propertyID}).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list photos query failed: %w", err)
	}

	var photos []*Photo
	err = retry.Do(ctx, r.retry, "list photos", func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return db.Classify(fmt.Errorf("list photos failed: %w", err))
		}
		defer rows.Close()

		photos = photos[:0]
		for rows.Next() {
			p, err := scanPhoto(rows)
			if err != nil {
				return db.Classify(fmt.Errorf("scan photo failed: %w", err))
			}
			photos = append(photos, p)
		}
		if err := rows.Err(); err != nil {
			return db.Classify(fmt.Errorf("list photos failed: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return photos, nil
}

func (r *pgxRepository) Delete(ctx context.Context, id string) error {
	query, args, err := psql().Delete("public.photos").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete photo query failed: %w", err)
	}

	return retry.Do(ctx, r.retry, "delete photo", func() error {
		ct, err := r.pool.Exec(ctx, query, args...)
		if err != nil {
			return db.Classify(fmt.Errorf("delete photo failed: %w", err))
		}
		if ct.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}
