package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []SendEmailPayload
	err  error
}

func (f *fakeSender) Send(ctx context.Context, to, subject, body string) error {
	f.sent = append(f.sent, SendEmailPayload{To: to, Subject: subject, Body: body})
	return f.err
}

func TestSendEmailHandler(t *testing.T) {
	sender := &fakeSender{}
	handler := NewSendEmailHandler(sender)

	task, err := NewSendEmailTask(SendEmailPayload{
		To:      "alice@example.com",
		Subject: "Booking confirmed",
		Body:    "see you there",
	})
	require.NoError(t, err)
	require.Equal(t, TaskTypeSendEmail, task.Type())

	require.NoError(t, handler(context.Background(), task))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "alice@example.com", sender.sent[0].To)
	assert.Equal(t, "Booking confirmed", sender.sent[0].Subject)
}

func TestSendEmailHandlerBadPayloadSkipsRetry(t *testing.T) {
	handler := NewSendEmailHandler(&fakeSender{})
	task := asynq.NewTask(TaskTypeSendEmail, []byte("{not json"))

	err := handler(context.Background(), task)
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestSendEmailHandlerPropagatesSendFailure(t *testing.T) {
	boom := errors.New("smtp down")
	handler := NewSendEmailHandler(&fakeSender{err: boom})

	task, err := NewSendEmailTask(SendEmailPayload{To: "a@b.c"})
	require.NoError(t, err)

	err = handler(context.Background(), task)
	assert.True(t, errors.Is(err, boom), "delivery failures must surface so asynq retries")
}
