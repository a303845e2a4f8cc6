package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"budgetbuddy/internal/notify"
)

// EmailMessage is the queued form of a notification. The ID lets the worker
// and broker logs correlate redeliveries of the same email.
type EmailMessage struct {
	ID        string    `json:"id"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEmailMessage(msg notify.Message) *EmailMessage {
	return &EmailMessage{
		ID:        uuid.NewString(),
		To:        msg.To,
		Subject:   msg.Subject,
		Body:      msg.Body,
		Timestamp: time.Now().UTC(),
	}
}

// Message converts back to the transport-neutral form.
func (m *EmailMessage) Message() notify.Message {
	return notify.Message{To: m.To, Subject: m.Subject, Body: m.Body}
}

func (m *EmailMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func EmailMessageFromJSON(data []byte) (*EmailMessage, error) {
	var msg EmailMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.To == "" {
		return nil, errors.New("email message has no recipient")
	}
	return &msg, nil
}
