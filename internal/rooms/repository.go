package rooms

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roomhive/roomhive/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for rooms.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const roomColumns = `id, name, capacity, equipment, location, available`

func scanRoom(row pgx.Row) (Room, error) {
	var room Room
	if err := row.Scan(&room.ID, &room.Name, &room.Capacity, &room.Equipment, &room.Location, &room.Available); err != nil {
		return Room{}, err
	}
	return room, nil
}

// List returns all rooms ordered by name.
func (r *Repository) List(ctx context.Context) ([]Room, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, room)
	}
	return result, rows.Err()
}

// Get fetches a room by id.
func (r *Repository) Get(ctx context.Context, id int64) (Room, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id)
	room, err := scanRoom(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Room{}, httpx.ErrNotFound
		}
		return Room{}, err
	}
	return room, nil
}

// Create inserts a new room. Duplicate names map to httpx.ErrDuplicate.
func (r *Repository) Create(ctx context.Context, room Room) (Room, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO rooms (name, capacity, equipment, location, available)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+roomColumns,
		room.Name, room.Capacity, room.Equipment, room.Location, room.Available)
	created, err := scanRoom(row)
	if err != nil {
		if pgErr := (*pgconn.PgError)(nil); errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Room{}, httpx.ErrDuplicate
		}
		return Room{}, err
	}
	return created, nil
}

// Update persists room fields.
func (r *Repository) Update(ctx context.Context, room Room) (Room, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE rooms SET name = $2, capacity = $3, equipment = $4, location = $5, available = $6
		 WHERE id = $1
		 RETURNING `+roomColumns,
		room.ID, room.Name, room.Capacity, room.Equipment, room.Location, room.Available)
	updated, err := scanRoom(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Room{}, httpx.ErrNotFound
		}
		if pgErr := (*pgconn.PgError)(nil); errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Room{}, httpx.ErrDuplicate
		}
		return Room{}, err
	}
	return updated, nil
}

// Delete removes a room by id.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}
