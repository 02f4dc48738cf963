package reviews

import "time"

// Review statuses. Deleted reviews are soft-deleted and treated as absent.
const (
	StatusActive  = "ACTIVE"
	StatusDeleted = "DELETED"
)

// Review represents a user's feedback about a room.
type Review struct {
	ID        int64
	UserID    int64
	RoomID    int64
	Rating    int
	Comment   string
	Status    string
	IsFlagged bool
	CreatedAt time.Time
}
