package smtp

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"budgetbuddy/internal/notify"
)

func TestSendUnconfigured(t *testing.T) {
	msg := notify.Message{To: "u1@example.com", Subject: "s", Body: "b"}

	err := New(Config{}).Send(context.Background(), msg)
	assert.ErrorIs(t, err, notify.ErrTransportUnconfigured)

	err = New(Config{Host: "mail.example.com"}).Send(context.Background(), msg)
	assert.ErrorIs(t, err, notify.ErrTransportUnconfigured, "missing sender")

	err = New(Config{Host: "mail.example.com", From: "bot@example.com"}).Send(context.Background(), notify.Message{})
	assert.ErrorIs(t, err, notify.ErrTransportUnconfigured, "missing recipient")
}

func TestSendDialFailureIsTransient(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	tr := New(Config{Host: "127.0.0.1", Port: "1", From: "bot@example.com"})
	err := tr.Send(ctx, notify.Message{To: "u1@example.com", Subject: "s", Body: "b"})

	assert.Error(t, err)
	assert.NotErrorIs(t, err, notify.ErrTransportUnconfigured)
}

func TestBuildMessage(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)
	raw := string(buildMessage("bot@example.com", notify.Message{
		To:      "u1@example.com",
		Subject: "Budget Alert: Food",
		Body:    "line one\nline two",
	}, now))

	assert.Contains(t, raw, "From: bot@example.com\r\n")
	assert.Contains(t, raw, "To: u1@example.com\r\n")
	assert.Contains(t, raw, "Subject: Budget Alert: Food\r\n")
	assert.Contains(t, raw, "Date: Fri, 16 Oct 2026 09:30:00 +0000\r\n")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\nline one\r\nline two\r\n"))
}

func TestBuildMessageStripsHeaderInjection(t *testing.T) {
	raw := string(buildMessage("bot@example.com", notify.Message{
		To:      "u1@example.com\r\nBcc: evil@example.com",
		Subject: "hi",
	}, time.Now()))

	assert.NotContains(t, raw, "\r\nBcc:")
}
