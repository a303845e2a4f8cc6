package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"budgetbuddy/internal/amqp"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/notify"
)

const defaultSendTimeout = 30 * time.Second

// MailWorker delivers queued notification emails through a direct transport,
// usually SMTP.
type MailWorker struct {
	sender  notify.Transport
	timeout time.Duration
}

func NewMailWorker(sender notify.Transport, timeout time.Duration) *MailWorker {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &MailWorker{sender: sender, timeout: timeout}
}

// HandleEmail sends one queued email. A returned error requeues the message,
// including when the sender has no configuration: the publisher already
// recorded the notification as sent, so the queue is its only copy.
func (w *MailWorker) HandleEmail(ctx context.Context, msg *amqp.EmailMessage) error {
	logger := slog.With(
		log.FieldComponent, log.ComponentWorker,
		"message_id", msg.ID,
		"to", msg.To)

	if w.sender == nil {
		logger.WarnContext(ctx, "No mail sender configured, requeueing email")
		return fmt.Errorf("deliver email %s: %w", msg.ID, notify.ErrTransportUnconfigured)
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	err := w.sender.Send(sendCtx, msg.Message())
	switch {
	case errors.Is(err, notify.ErrTransportUnconfigured):
		logger.WarnContext(ctx, "Mail sender unconfigured, requeueing email",
			"subject", msg.Subject)
		return fmt.Errorf("deliver email %s: %w", msg.ID, err)
	case err != nil:
		logger.ErrorContext(ctx, "Failed to deliver queued email",
			log.FieldError, err,
			log.FieldDuration, time.Since(start).Milliseconds())
		return fmt.Errorf("deliver email %s: %w", msg.ID, err)
	}

	logger.InfoContext(ctx, "Delivered queued email",
		"subject", msg.Subject,
		"queued_for", time.Since(msg.Timestamp).Round(time.Millisecond),
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}
