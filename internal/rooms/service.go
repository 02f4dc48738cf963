package rooms

import (
	"context"
	"fmt"
	"strings"

	"github.com/roomhive/roomhive/internal/platform/httpx"
)

// RepositoryPort defines data access methods for rooms.
type RepositoryPort interface {
	List(ctx context.Context) ([]Room, error)
	Get(ctx context.Context, id int64) (Room, error)
	Create(ctx context.Context, room Room) (Room, error)
	Update(ctx context.Context, room Room) (Room, error)
	Delete(ctx context.Context, id int64) error
}

// Service handles room business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func validateRoom(room Room) error {
	if strings.TrimSpace(room.Name) == "" {
		return fmt.Errorf("%w: room name is required", httpx.ErrValidation)
	}
	if room.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive", httpx.ErrValidation)
	}
	return nil
}

// List returns all rooms.
func (s *Service) List(ctx context.Context) ([]Room, error) {
	return s.repo.List(ctx)
}

// Get fetches a single room.
func (s *Service) Get(ctx context.Context, id int64) (Room, error) {
	return s.repo.Get(ctx, id)
}

// Create adds a new room.
func (s *Service) Create(ctx context.Context, room Room) (Room, error) {
	room.Name = strings.TrimSpace(room.Name)
	if err := validateRoom(room); err != nil {
		return Room{}, err
	}
	return s.repo.Create(ctx, room)
}

// UpdateInput carries optional fields for a room update.
type UpdateInput struct {
	Name      *string
	Capacity  *int
	Equipment *string
	Location  *string
	Available *bool
}

// Update applies the provided fields to an existing room.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (Room, error) {
	room, err := s.repo.Get(ctx, id)
	if err != nil {
		return Room{}, err
	}
	if input.Name != nil {
		room.Name = strings.TrimSpace(*input.Name)
	}
	if input.Capacity != nil {
		room.Capacity = *input.Capacity
	}
	if input.Equipment != nil {
		room.Equipment = *input.Equipment
	}
	if input.Location != nil {
		room.Location = *input.Location
	}
	if input.Available != nil {
		room.Available = *input.Available
	}
	if err := validateRoom(room); err != nil {
		return Room{}, err
	}
	return s.repo.Update(ctx, room)
}

// Delete removes a room.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
