// Package notify decides when budget notifications fire and delivers them
// at most once per dedup key.
package notify

import (
	"context"
	"errors"
	"time"
)

// ErrTransportUnconfigured is returned by transports that have no
// destination or credentials to send with.
var ErrTransportUnconfigured = errors.New("notification transport not configured")

const (
	KindBudgetThreshold  Kind = "budget_threshold"
	KindLargeTransaction Kind = "large_transaction"
)

const (
	StatusSent                DeliveryStatus = "sent"
	StatusSkippedUnconfigured DeliveryStatus = "skipped_unconfigured"
	StatusFailedTransient     DeliveryStatus = "failed_transient"
	StatusAlreadySent         DeliveryStatus = "already_sent"
	StatusDedupUnavailable    DeliveryStatus = "dedup_unavailable"
)

type (
	Kind string

	DeliveryStatus string

	Message struct {
		To      string
		Subject string
		Body    string
	}

	// Transport sends a message. A nil error means the send was confirmed.
	Transport interface {
		Send(ctx context.Context, msg Message) error
	}

	// DedupStore records which notifications were already delivered. Keys
	// are opaque strings.
	DedupStore interface {
		Has(ctx context.Context, key string) (bool, error)
		// MarkSent records the first successful send. Marking an existing
		// key keeps the original timestamp.
		MarkSent(ctx context.Context, key string, sentAt time.Time) error
		// PurgeOlderThan removes entries sent strictly before cutoff and
		// returns how many were removed.
		PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error)
		// Reset removes every entry whose key starts with prefix.
		Reset(ctx context.Context, prefix string) (int, error)
	}

	// Delivery is the outcome of one notification candidate.
	Delivery struct {
		Key           string
		Kind          Kind
		CategoryID    string
		Threshold     int
		TransactionID string
		Message       Message
		Status        DeliveryStatus
		Err           error
	}
)

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, msg Message) error

func (f TransportFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }

// Sent counts the deliveries that reached the transport successfully.
func Sent(deliveries []Delivery) int {
	n := 0
	for _, d := range deliveries {
		if d.Status == StatusSent {
			n++
		}
	}
	return n
}
