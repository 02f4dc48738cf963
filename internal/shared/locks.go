package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RoomLockKey builds redis keys for per-room booking critical sections.
func RoomLockKey(roomID int64) string {
	return fmt.Sprintf("rooms:%d:booking:lock", roomID)
}

// RoomLocker serialises availability-check-then-insert for a room so two
// concurrent requests cannot both book the same slot.
type RoomLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRoomLocker constructs a locker. The TTL bounds how long a crashed
// request can hold a room.
func NewRoomLocker(client *redis.Client, ttl time.Duration) *RoomLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &RoomLocker{client: client, ttl: ttl}
}

// ErrRoomBusy indicates another booking for the room is in flight.
var ErrRoomBusy = fmt.Errorf("room booking in progress")

// Acquire takes the lock for a room or fails fast with ErrRoomBusy.
func (l *RoomLocker) Acquire(ctx context.Context, roomID int64) error {
	if l == nil || l.client == nil {
		return nil
	}
	ok, err := l.client.SetNX(ctx, RoomLockKey(roomID), 1, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("shared: acquire room lock: %w", err)
	}
	if !ok {
		return ErrRoomBusy
	}
	return nil
}

// Release frees the lock for a room.
func (l *RoomLocker) Release(ctx context.Context, roomID int64) {
	if l == nil || l.client == nil {
		return
	}
	l.client.Del(ctx, RoomLockKey(roomID))
}
