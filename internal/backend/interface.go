// Package backend assembles the ledger, dedup store, notification transport
// and summary exporter selected by configuration.
package backend

import (
	"context"

	"budgetbuddy/internal/ledger"
	"budgetbuddy/internal/notify"
	"budgetbuddy/internal/sheets"
)

// CleanupFunc releases the resources a backend opened.
type CleanupFunc func() error

// BackendResult contains the wired adapters and their cleanup function.
// Transport and Exporter are nil when not configured.
type BackendResult struct {
	Ledger    ledger.Store
	Ready     ledger.Pinger
	Dedup     notify.DedupStore
	Transport notify.Transport
	Exporter  sheets.SummaryExporter
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Ledger    BackendType
	Dedup     DedupType
	Transport TransportType

	SQLiteDBPath string
	DatabaseURL  string
	RedisURL     string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Export is enabled when GoogleSpreadsheetID is set.
	GoogleSpreadsheetID    string
	GoogleSummarySheetName string
}

type (
	// BackendType selects the ledger store.
	BackendType string
	// DedupType selects the notification dedup store.
	DedupType string
	// TransportType selects how notifications leave the process.
	TransportType string
)

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"

	MemoryDedup DedupType = "memory"
	SQLiteDedup DedupType = "sqlite"
	RedisDedup  DedupType = "redis"

	NoTransport   TransportType = "none"
	SMTPTransport TransportType = "smtp"
	AMQPTransport TransportType = "amqp"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}

func (dt DedupType) IsValid() bool {
	switch dt {
	case MemoryDedup, SQLiteDedup, RedisDedup:
		return true
	default:
		return false
	}
}

func (tt TransportType) IsValid() bool {
	switch tt {
	case NoTransport, SMTPTransport, AMQPTransport:
		return true
	default:
		return false
	}
}
