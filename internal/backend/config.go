package backend

import (
	"fmt"

	"budgetbuddy/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	cfg := Config{
		Ledger:    BackendType(appConfig.LedgerBackend),
		Dedup:     DedupType(appConfig.DedupBackend),
		Transport: TransportType(appConfig.NotifyTransport),

		SQLiteDBPath: appConfig.SQLiteDBPath,
		DatabaseURL:  appConfig.DatabaseURL,
		RedisURL:     appConfig.RedisURL,

		SMTPHost:     appConfig.SMTPHost,
		SMTPPort:     appConfig.SMTPPort,
		SMTPUsername: appConfig.SMTPUsername,
		SMTPPassword: appConfig.SMTPPassword,
		SMTPFrom:     appConfig.SMTPFrom,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		GoogleSpreadsheetID:    appConfig.GoogleSpreadsheetID,
		GoogleSummarySheetName: appConfig.GoogleSummarySheetName,
	}
	if cfg.Transport == "" {
		cfg.Transport = NoTransport
	}
	return cfg, cfg.Validate()
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Ledger.IsValid() {
		return fmt.Errorf("invalid ledger backend: %s", c.Ledger)
	}
	if !c.Dedup.IsValid() {
		return fmt.Errorf("invalid dedup backend: %s", c.Dedup)
	}
	if !c.Transport.IsValid() {
		return fmt.Errorf("invalid notify transport: %s", c.Transport)
	}

	if (c.Ledger == SQLiteBackend || c.Dedup == SQLiteDedup) && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	if c.Ledger == PostgresBackend && c.DatabaseURL == "" {
		return fmt.Errorf("database URL is required for postgres backend")
	}
	if c.Dedup == RedisDedup && c.RedisURL == "" {
		return fmt.Errorf("redis URL is required for redis dedup")
	}
	if c.Transport == AMQPTransport && (c.AMQPURL == "" || c.AMQPExchange == "" || c.AMQPQueue == "") {
		return fmt.Errorf("AMQP URL, exchange and queue are required for amqp transport")
	}
	// SMTP without host or sender is allowed; every send then reports
	// skipped_unconfigured.

	return nil
}

// GetBackendTypes returns all valid ledger backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, PostgresBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
