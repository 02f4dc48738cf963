package bookings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roomhive/roomhive/internal/platform/httpx"
	"github.com/roomhive/roomhive/internal/shared"
)

// RepositoryPort defines data access methods for bookings.
type RepositoryPort interface {
	List(ctx context.Context, limit, offset int) ([]Booking, int, error)
	ListByUser(ctx context.Context, userID int64) ([]Booking, error)
	Get(ctx context.Context, id int64) (Booking, error)
	Create(ctx context.Context, b Booking) (Booking, error)
	Update(ctx context.Context, b Booking) (Booking, error)
	SetStatus(ctx context.Context, id int64, status string) (Booking, error)
	HasConflict(ctx context.Context, roomID int64, start, end time.Time, excludeID int64) (bool, error)
}

// Notifier delivers booking lifecycle notifications. Implementations enqueue
// background work; failures must not fail the booking operation.
type Notifier interface {
	BookingConfirmed(ctx context.Context, b Booking) error
	BookingCancelled(ctx context.Context, b Booking) error
}

// Service handles booking business logic.
type Service struct {
	repo     RepositoryPort
	locker   *shared.RoomLocker
	notifier Notifier
	logger   *slog.Logger
}

// NewService builds a Service instance. locker and notifier may be nil in
// tests.
func NewService(repo RepositoryPort, locker *shared.RoomLocker, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{repo: repo, locker: locker, notifier: notifier, logger: logger}
}

// CreateInput carries the fields for a new booking.
type CreateInput struct {
	UserID    int64
	RoomID    int64
	StartTime time.Time
	EndTime   time.Time
}

func validateInterval(start, end time.Time) error {
	if !end.After(start) {
		return fmt.Errorf("%w: end_time must be after start_time", httpx.ErrValidation)
	}
	return nil
}

// List returns a page of bookings with pagination metadata.
func (s *Service) List(ctx context.Context, page, perPage int) ([]Booking, shared.Pagination, error) {
	p := shared.NewPagination(page, perPage, 0)
	list, total, err := s.repo.List(ctx, p.PerPage, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(p.Page, p.PerPage, total), nil
}

// History returns a user's bookings, most recent first.
func (s *Service) History(ctx context.Context, userID int64) ([]Booking, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Get fetches a single booking.
func (s *Service) Get(ctx context.Context, id int64) (Booking, error) {
	return s.repo.Get(ctx, id)
}

// Create books a room for the interval. The per-room lock closes the race
// between the availability check and the insert; a concurrent attempt on the
// same room gets a conflict instead of a double booking.
func (s *Service) Create(ctx context.Context, input CreateInput) (Booking, error) {
	if err := validateInterval(input.StartTime, input.EndTime); err != nil {
		return Booking{}, err
	}
	if s.locker != nil {
		if err := s.locker.Acquire(ctx, input.RoomID); err != nil {
			if errors.Is(err, shared.ErrRoomBusy) {
				return Booking{}, fmt.Errorf("%w: room is being booked by another request", httpx.ErrConflict)
			}
			return Booking{}, err
		}
		defer s.locker.Release(ctx, input.RoomID)
	}

	conflict, err := s.repo.HasConflict(ctx, input.RoomID, input.StartTime, input.EndTime, 0)
	if err != nil {
		return Booking{}, err
	}
	if conflict {
		return Booking{}, fmt.Errorf("%w: room is not available in this time slot", httpx.ErrConflict)
	}

	b, err := s.repo.Create(ctx, Booking{
		Reference: uuid.NewString(),
		UserID:    input.UserID,
		RoomID:    input.RoomID,
		StartTime: input.StartTime,
		EndTime:   input.EndTime,
		Status:    StatusConfirmed,
	})
	if err != nil {
		return Booking{}, err
	}
	s.notify(ctx, b, true)
	return b, nil
}

// UpdateInput carries optional fields for a booking update.
type UpdateInput struct {
	RoomID    *int64
	StartTime *time.Time
	EndTime   *time.Time
}

// Update changes the room or interval of an existing booking, re-checking
// availability for the new slot.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (Booking, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return Booking{}, err
	}
	if input.RoomID != nil {
		b.RoomID = *input.RoomID
	}
	if input.StartTime != nil {
		b.StartTime = *input.StartTime
	}
	if input.EndTime != nil {
		b.EndTime = *input.EndTime
	}
	if err := validateInterval(b.StartTime, b.EndTime); err != nil {
		return Booking{}, err
	}
	conflict, err := s.repo.HasConflict(ctx, b.RoomID, b.StartTime, b.EndTime, b.ID)
	if err != nil {
		return Booking{}, err
	}
	if conflict {
		return Booking{}, fmt.Errorf("%w: room is not available in this time slot", httpx.ErrConflict)
	}
	return s.repo.Update(ctx, b)
}

// Cancel marks a booking cancelled. The row is kept so history survives.
func (s *Service) Cancel(ctx context.Context, id int64) (Booking, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return Booking{}, err
	}
	if b.Status == StatusCancelled {
		return b, nil
	}
	b, err = s.repo.SetStatus(ctx, id, StatusCancelled)
	if err != nil {
		return Booking{}, err
	}
	s.notify(ctx, b, false)
	return b, nil
}

// Available reports whether the room is free in the interval.
func (s *Service) Available(ctx context.Context, roomID int64, start, end time.Time) (bool, error) {
	if err := validateInterval(start, end); err != nil {
		return false, err
	}
	conflict, err := s.repo.HasConflict(ctx, roomID, start, end, 0)
	if err != nil {
		return false, err
	}
	return !conflict, nil
}

func (s *Service) notify(ctx context.Context, b Booking, confirmed bool) {
	if s.notifier == nil {
		return
	}
	var err error
	if confirmed {
		err = s.notifier.BookingConfirmed(ctx, b)
	} else {
		err = s.notifier.BookingCancelled(ctx, b)
	}
	if err != nil && s.logger != nil {
		s.logger.Warn("booking notification failed",
			slog.Int64("booking_id", b.ID),
			slog.Any("error", err))
	}
}
