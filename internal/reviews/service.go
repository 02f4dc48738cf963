package reviews

import (
	"context"
	"fmt"

	"github.com/roomhive/roomhive/internal/platform/httpx"
)

// RepositoryPort defines data access methods for reviews.
type RepositoryPort interface {
	Create(ctx context.Context, rv Review) (Review, error)
	Get(ctx context.Context, id int64) (Review, error)
	Update(ctx context.Context, rv Review) (Review, error)
	SoftDelete(ctx context.Context, id int64) error
	Flag(ctx context.Context, id int64) (Review, error)
	ListActiveByRoom(ctx context.Context, roomID int64) ([]Review, error)
}

// Service handles review business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func validateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", httpx.ErrValidation)
	}
	return nil
}

// CreateInput carries the fields for a new review.
type CreateInput struct {
	UserID  int64
	RoomID  int64
	Rating  int
	Comment string
}

// Create submits a review for a room.
func (s *Service) Create(ctx context.Context, input CreateInput) (Review, error) {
	if err := validateRating(input.Rating); err != nil {
		return Review{}, err
	}
	return s.repo.Create(ctx, Review{
		UserID:  input.UserID,
		RoomID:  input.RoomID,
		Rating:  input.Rating,
		Comment: input.Comment,
	})
}

// Get fetches a single active review.
func (s *Service) Get(ctx context.Context, id int64) (Review, error) {
	return s.repo.Get(ctx, id)
}

// UpdateInput carries optional fields for a review update.
type UpdateInput struct {
	Rating  *int
	Comment *string
}

// Update applies the provided fields to an existing review.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (Review, error) {
	rv, err := s.repo.Get(ctx, id)
	if err != nil {
		return Review{}, err
	}
	if input.Rating != nil {
		if err := validateRating(*input.Rating); err != nil {
			return Review{}, err
		}
		rv.Rating = *input.Rating
	}
	if input.Comment != nil {
		rv.Comment = *input.Comment
	}
	return s.repo.Update(ctx, rv)
}

// Delete soft-deletes a review.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.SoftDelete(ctx, id)
}

// Flag marks a review as inappropriate for moderation follow-up.
func (s *Service) Flag(ctx context.Context, id int64) (Review, error) {
	return s.repo.Flag(ctx, id)
}

// ListForRoom returns a room's active reviews.
func (s *Service) ListForRoom(ctx context.Context, roomID int64) ([]Review, error) {
	return s.repo.ListActiveByRoom(ctx, roomID)
}
