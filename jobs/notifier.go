package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/roomhive/roomhive/internal/bookings"
)

// EmailDirectory resolves a user's email address. Implemented by the users
// service client.
type EmailDirectory interface {
	EmailFor(ctx context.Context, userID int64) (string, error)
}

// BookingNotifier enqueues booking notification emails. It implements
// bookings.Notifier.
type BookingNotifier struct {
	client    *asynq.Client
	directory EmailDirectory
	logger    *slog.Logger
}

// NewBookingNotifier constructs a notifier backed by the Asynq client.
func NewBookingNotifier(client *asynq.Client, directory EmailDirectory, logger *slog.Logger) *BookingNotifier {
	return &BookingNotifier{client: client, directory: directory, logger: logger}
}

// BookingConfirmed enqueues a confirmation email for the booking owner.
func (n *BookingNotifier) BookingConfirmed(ctx context.Context, b bookings.Booking) error {
	return n.enqueue(ctx, b,
		"Booking confirmed",
		fmt.Sprintf("Your booking %s for room %d is confirmed from %s to %s.",
			b.Reference, b.RoomID, b.StartTime.Format("2006-01-02 15:04"), b.EndTime.Format("2006-01-02 15:04")))
}

// BookingCancelled enqueues a cancellation email for the booking owner.
func (n *BookingNotifier) BookingCancelled(ctx context.Context, b bookings.Booking) error {
	return n.enqueue(ctx, b,
		"Booking cancelled",
		fmt.Sprintf("Your booking %s for room %d has been cancelled.", b.Reference, b.RoomID))
}

func (n *BookingNotifier) enqueue(ctx context.Context, b bookings.Booking, subject, body string) error {
	email, err := n.directory.EmailFor(ctx, b.UserID)
	if err != nil {
		return fmt.Errorf("jobs: resolve recipient: %w", err)
	}
	task, err := NewSendEmailTask(SendEmailPayload{To: email, Subject: subject, Body: body})
	if err != nil {
		return err
	}
	info, err := n.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.MaxRetry(3))
	if err != nil {
		return fmt.Errorf("jobs: enqueue email: %w", err)
	}
	if n.logger != nil {
		n.logger.Info("booking email enqueued",
			slog.String("task_id", info.ID),
			slog.Int64("booking_id", b.ID))
	}
	return nil
}
