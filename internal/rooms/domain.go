package rooms

// Room represents a bookable meeting room. Available marks rooms that are in
// service; an unavailable room is kept for history but cannot be booked.
type Room struct {
	ID        int64
	Name      string
	Capacity  int
	Equipment string
	Location  string
	Available bool
}
