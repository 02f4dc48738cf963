package users

import (
	"time"

	"github.com/roomhive/roomhive/internal/authz"
)

// User represents a registered account. PasswordHash never leaves the
// service layer.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         authz.Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
