package backend

import (
	"context"
	"errors"
	"fmt"

	"budgetbuddy/internal/amqp"
	"budgetbuddy/internal/dedup"
	"budgetbuddy/internal/ledger/memory"
	"budgetbuddy/internal/log"
	"budgetbuddy/internal/notify/smtp"
	gsheet "budgetbuddy/internal/sheets/google"
	"budgetbuddy/internal/storage"
	"budgetbuddy/internal/storage/postgres"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend opens every adapter the config selects. On error anything
// already opened is closed again.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (_ *BackendResult, err error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var closers []func() error
	defer func() {
		if err != nil {
			_ = closeAll(closers)
		}
	}()

	result := &BackendResult{}

	// One SQLite repository serves as ledger and dedup store when both
	// select it.
	var sqliteRepo *storage.SQLiteRepository
	openSQLite := func() (*storage.SQLiteRepository, error) {
		if sqliteRepo != nil {
			return sqliteRepo, nil
		}
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		closers = append(closers, repo.Close)
		sqliteRepo = repo
		return repo, nil
	}

	switch config.Ledger {
	case MemoryBackend:
		store := memory.New()
		result.Ledger, result.Ready = store, store
	case SQLiteBackend:
		repo, err := openSQLite()
		if err != nil {
			return nil, err
		}
		result.Ledger, result.Ready = repo, repo
	case PostgresBackend:
		store, err := postgres.Open(ctx, config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres ledger: %w", err)
		}
		closers = append(closers, func() error { store.Close(); return nil })
		result.Ledger, result.Ready = store, store
	}
	f.logger.Info("Initialized ledger", "backend", config.Ledger)

	switch config.Dedup {
	case MemoryDedup:
		result.Dedup = dedup.NewMemory()
	case SQLiteDedup:
		repo, err := openSQLite()
		if err != nil {
			return nil, err
		}
		result.Dedup = repo
	case RedisDedup:
		store, err := dedup.DialRedis(ctx, config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis dedup store: %w", err)
		}
		closers = append(closers, store.Close)
		result.Dedup = store
	}
	f.logger.Info("Initialized notification dedup store", "backend", config.Dedup)

	switch config.Transport {
	case NoTransport:
		f.logger.Warn("No notification transport configured, notifications will be skipped")
	case SMTPTransport:
		result.Transport = smtp.New(config.SMTPConfig())
		f.logger.Info("Initialized SMTP transport", "host", config.SMTPHost)
	case AMQPTransport:
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
		}
		closers = append(closers, client.Close)
		result.Transport = client
		f.logger.Info("Initialized AMQP transport",
			"exchange", config.AMQPExchange,
			"queue", config.AMQPQueue)
	}

	if config.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(ctx, config.GoogleSpreadsheetID, config.GoogleSummarySheetName)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets exporter: %w", err)
		}
		result.Exporter = client
		f.logger.Info("Initialized Google Sheets exporter")
	}

	result.Cleanup = func() error { return closeAll(closers) }
	return result, nil
}

// SMTPConfig returns the direct mail settings. The mail worker uses them
// even when the server publishes to AMQP.
func (c Config) SMTPConfig() smtp.Config {
	return smtp.Config{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUsername,
		Password: c.SMTPPassword,
		From:     c.SMTPFrom,
	}
}

// closeAll closes in reverse opening order.
func closeAll(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
