package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roomhive/roomhive/internal/authz"
	"github.com/roomhive/roomhive/internal/platform/db"
	"github.com/roomhive/roomhive/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for bookings.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const bookingColumns = `id, reference, user_id, room_id, start_time, end_time, status, created_at`

func scanBooking(row pgx.Row) (Booking, error) {
	var b Booking
	if err := row.Scan(&b.ID, &b.Reference, &b.UserID, &b.RoomID, &b.StartTime, &b.EndTime, &b.Status, &b.CreatedAt); err != nil {
		return Booking{}, err
	}
	return b, nil
}

// List returns a page of bookings ordered by start time, plus the total row
// count for pagination metadata.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Booking, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM bookings`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+bookingColumns+` FROM bookings ORDER BY start_time DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	list, err := collect(rows)
	return list, total, err
}

// ListByUser returns a user's bookings, most recent first.
func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]Booking, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id = $1 ORDER BY start_time DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func collect(rows pgx.Rows) ([]Booking, error) {
	var result []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

// Get fetches a booking by id.
func (r *Repository) Get(ctx context.Context, id int64) (Booking, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Booking{}, httpx.ErrNotFound
		}
		return Booking{}, err
	}
	return b, nil
}

// Create inserts a new booking. The conflict check is repeated inside the
// transaction so a booking that slipped in after the service-level check still
// fails instead of double-booking the room.
func (r *Repository) Create(ctx context.Context, b Booking) (Booking, error) {
	var created Booking
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (
				SELECT 1 FROM bookings
				WHERE room_id = $1 AND status = $2
				  AND start_time < $4 AND end_time > $3
			)`, b.RoomID, StatusConfirmed, b.StartTime, b.EndTime).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: room is not available in this time slot", httpx.ErrConflict)
		}
		row := tx.QueryRow(ctx,
			`INSERT INTO bookings (reference, user_id, room_id, start_time, end_time, status, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, now())
			 RETURNING `+bookingColumns,
			b.Reference, b.UserID, b.RoomID, b.StartTime, b.EndTime, b.Status)
		var err error
		created, err = scanBooking(row)
		return err
	})
	if err != nil {
		return Booking{}, err
	}
	return created, nil
}

// Update persists room and interval changes.
func (r *Repository) Update(ctx context.Context, b Booking) (Booking, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE bookings SET room_id = $2, start_time = $3, end_time = $4
		 WHERE id = $1
		 RETURNING `+bookingColumns,
		b.ID, b.RoomID, b.StartTime, b.EndTime)
	updated, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Booking{}, httpx.ErrNotFound
		}
		return Booking{}, err
	}
	return updated, nil
}

// SetStatus updates the booking status.
func (r *Repository) SetStatus(ctx context.Context, id int64, status string) (Booking, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE bookings SET status = $2 WHERE id = $1 RETURNING `+bookingColumns, id, status)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Booking{}, httpx.ErrNotFound
		}
		return Booking{}, err
	}
	return b, nil
}

// HasConflict reports whether a confirmed booking overlaps the interval for
// the room. excludeID skips the booking being updated.
func (r *Repository) HasConflict(ctx context.Context, roomID int64, start, end time.Time, excludeID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE room_id = $1 AND status = $2 AND id <> $3
			  AND start_time < $5 AND end_time > $4
		)`, roomID, StatusConfirmed, excludeID, start, end).Scan(&exists)
	return exists, err
}

// ResolveOwner implements authz.Resolver for the booking resource.
func (r *Repository) ResolveOwner(ctx context.Context, resource authz.Resource, resourceID int64) (int64, error) {
	if resource != authz.ResourceBooking {
		return 0, authz.ErrResourceNotFound
	}
	var owner int64
	err := r.pool.QueryRow(ctx, `SELECT user_id FROM bookings WHERE id = $1`, resourceID).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, authz.ErrResourceNotFound
		}
		return 0, err
	}
	return owner, nil
}
