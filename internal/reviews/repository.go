package reviews

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roomhive/roomhive/internal/authz"
	"github.com/roomhive/roomhive/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for reviews.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const reviewColumns = `id, user_id, room_id, rating, comment, status, is_flagged, created_at`

func scanReview(row pgx.Row) (Review, error) {
	var rv Review
	if err := row.Scan(&rv.ID, &rv.UserID, &rv.RoomID, &rv.Rating, &rv.Comment, &rv.Status, &rv.IsFlagged, &rv.CreatedAt); err != nil {
		return Review{}, err
	}
	return rv, nil
}

// Create inserts a new review.
func (r *Repository) Create(ctx context.Context, rv Review) (Review, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO reviews (user_id, room_id, rating, comment, status, is_flagged, created_at)
		 VALUES ($1, $2, $3, $4, $5, false, now())
		 RETURNING `+reviewColumns,
		rv.UserID, rv.RoomID, rv.Rating, rv.Comment, StatusActive)
	return scanReview(row)
}

// Get fetches an active review by id. Soft-deleted reviews are reported as
// absent.
func (r *Repository) Get(ctx context.Context, id int64) (Review, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE id = $1 AND status <> $2`, id, StatusDeleted)
	rv, err := scanReview(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Review{}, httpx.ErrNotFound
		}
		return Review{}, err
	}
	return rv, nil
}

// Update persists rating and comment changes.
func (r *Repository) Update(ctx context.Context, rv Review) (Review, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE reviews SET rating = $2, comment = $3 WHERE id = $1 AND status <> $4
		 RETURNING `+reviewColumns,
		rv.ID, rv.Rating, rv.Comment, StatusDeleted)
	updated, err := scanReview(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Review{}, httpx.ErrNotFound
		}
		return Review{}, err
	}
	return updated, nil
}

// SoftDelete marks a review deleted, keeping the row.
func (r *Repository) SoftDelete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE reviews SET status = $2 WHERE id = $1 AND status <> $2`, id, StatusDeleted)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// Flag marks a review as inappropriate.
func (r *Repository) Flag(ctx context.Context, id int64) (Review, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE reviews SET is_flagged = true WHERE id = $1 AND status <> $2
		 RETURNING `+reviewColumns,
		id, StatusDeleted)
	rv, err := scanReview(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Review{}, httpx.ErrNotFound
		}
		return Review{}, err
	}
	return rv, nil
}

// ListActiveByRoom returns a room's active reviews, newest first.
func (r *Repository) ListActiveByRoom(ctx context.Context, roomID int64) ([]Review, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+reviewColumns+` FROM reviews
		 WHERE room_id = $1 AND status = $2 ORDER BY created_at DESC`,
		roomID, StatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rv)
	}
	return result, rows.Err()
}

// ResolveOwner implements authz.Resolver for the review resource. A
// soft-deleted review resolves as absent, so ownership can never be claimed
// on it.
func (r *Repository) ResolveOwner(ctx context.Context, resource authz.Resource, resourceID int64) (int64, error) {
	if resource != authz.ResourceReview {
		return 0, authz.ErrResourceNotFound
	}
	var owner int64
	err := r.pool.QueryRow(ctx,
		`SELECT user_id FROM reviews WHERE id = $1 AND status <> $2`, resourceID, StatusDeleted).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, authz.ErrResourceNotFound
		}
		return 0, err
	}
	return owner, nil
}
