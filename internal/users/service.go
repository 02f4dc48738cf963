package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/roomhive/roomhive/internal/authz"
	"github.com/roomhive/roomhive/internal/platform/httpx"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	Create(ctx context.Context, u User) (User, error)
	Get(ctx context.Context, id int64) (User, error)
	FindByUsername(ctx context.Context, username string) (User, error)
	List(ctx context.Context) ([]User, error)
	Update(ctx context.Context, u User) (User, error)
	Delete(ctx context.Context, id int64) error
}

// Service handles user business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register creates a new account with the default role. Role escalation goes
// through Update by an authorized caller, never through registration.
func (s *Service) Register(ctx context.Context, input RegisterInput) (User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)
	if username == "" || email == "" {
		return User{}, fmt.Errorf("%w: username and email are required", httpx.ErrValidation)
	}
	if len(input.Password) < 8 {
		return User{}, fmt.Errorf("%w: password must be at least 8 characters", httpx.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	return s.repo.Create(ctx, User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         authz.RoleRegularUser,
	})
}

// Login verifies credentials and returns the account. The caller (gateway)
// is responsible for setting identity headers on subsequent requests.
func (s *Service) Login(ctx context.Context, username, password string) (User, error) {
	u, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return User{}, fmt.Errorf("%w: invalid credentials", httpx.ErrUnauthorized)
		}
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return User{}, fmt.Errorf("%w: invalid credentials", httpx.ErrUnauthorized)
	}
	return u, nil
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Get fetches a single user.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// UpdateInput carries optional fields for a user update.
type UpdateInput struct {
	Username *string
	Email    *string
	Role     *authz.Role
}

// Update applies the provided fields to an existing user.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if username == "" {
			return User{}, fmt.Errorf("%w: username must not be empty", httpx.ErrValidation)
		}
		u.Username = username
	}
	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		if email == "" {
			return User{}, fmt.Errorf("%w: email must not be empty", httpx.ErrValidation)
		}
		u.Email = email
	}
	if input.Role != nil {
		if _, err := authz.ParseIdentity(string(*input.Role), ""); err != nil {
			return User{}, fmt.Errorf("%w: unknown role %q", httpx.ErrValidation, *input.Role)
		}
		u.Role = *input.Role
	}
	return s.repo.Update(ctx, u)
}

// Delete removes a user.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
