package bookings

import "time"

// Booking statuses. Cancelled bookings stay in the table so history survives.
const (
	StatusConfirmed = "CONFIRMED"
	StatusCancelled = "CANCELLED"
)

// Booking represents a reservation of a room by a user for a time interval.
// Reference is an opaque id safe to put in notification emails.
type Booking struct {
	ID        int64
	Reference string
	UserID    int64
	RoomID    int64
	StartTime time.Time
	EndTime   time.Time
	Status    string
	CreatedAt time.Time
}
