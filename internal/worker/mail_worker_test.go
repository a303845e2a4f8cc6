package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetbuddy/internal/amqp"
	"budgetbuddy/internal/notify"
)

type recordingSender struct {
	err  error
	sent []notify.Message
}

func (s *recordingSender) Send(ctx context.Context, msg notify.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func queued() *amqp.EmailMessage {
	return amqp.NewEmailMessage(notify.Message{
		To:      "u1@example.com",
		Subject: "Budget Alert: Food",
		Body:    "Your Food category is at 50% of budget with $250.00 spent of $500.00 budget.",
	})
}

func TestHandleEmailDelivers(t *testing.T) {
	sender := &recordingSender{}
	w := NewMailWorker(sender, time.Second)

	require.NoError(t, w.HandleEmail(context.Background(), queued()))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "u1@example.com", sender.sent[0].To)
	assert.Equal(t, "Budget Alert: Food", sender.sent[0].Subject)
}

func TestHandleEmailRequeuesTransientFailure(t *testing.T) {
	w := NewMailWorker(&recordingSender{err: errors.New("connection refused")}, time.Second)

	err := w.HandleEmail(context.Background(), queued())
	assert.Error(t, err)
}

func TestHandleEmailRequeuesWhenUnconfigured(t *testing.T) {
	w := NewMailWorker(&recordingSender{err: notify.ErrTransportUnconfigured}, time.Second)
	assert.ErrorIs(t, w.HandleEmail(context.Background(), queued()), notify.ErrTransportUnconfigured)

	w = NewMailWorker(nil, 0)
	assert.ErrorIs(t, w.HandleEmail(context.Background(), queued()), notify.ErrTransportUnconfigured)
	assert.Equal(t, defaultSendTimeout, w.timeout)
}

func TestHandleEmailAppliesTimeout(t *testing.T) {
	var deadline time.Time
	sender := notify.TransportFunc(func(ctx context.Context, msg notify.Message) error {
		deadline, _ = ctx.Deadline()
		return nil
	})
	w := NewMailWorker(sender, 50*time.Millisecond)

	require.NoError(t, w.HandleEmail(context.Background(), queued()))
	assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 50*time.Millisecond)
}
