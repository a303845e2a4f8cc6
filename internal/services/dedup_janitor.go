package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"budgetbuddy/internal/log"
	"budgetbuddy/internal/notify"
)

// DedupJanitorConfig holds configuration for the dedup janitor
type DedupJanitorConfig struct {
	// Retention is how long a sent-notification entry is kept (default: 720h)
	Retention time.Duration

	// Interval is how often expired entries are purged (default: 1h)
	Interval time.Duration
}

// DefaultDedupJanitorConfig returns sensible defaults
func DefaultDedupJanitorConfig() DedupJanitorConfig {
	return DedupJanitorConfig{
		Retention: 30 * 24 * time.Hour,
		Interval:  time.Hour,
	}
}

// DedupJanitor periodically removes dedup entries older than the retention
// window so the store does not grow without bound.
type DedupJanitor struct {
	store  notify.DedupStore
	config DedupJanitorConfig
	now    func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewDedupJanitor(store notify.DedupStore, config DedupJanitorConfig) *DedupJanitor {
	defaults := DefaultDedupJanitorConfig()
	if config.Retention <= 0 {
		config.Retention = defaults.Retention
	}
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	return &DedupJanitor{
		store:  store,
		config: config,
		now:    time.Now,
	}
}

// WithClock replaces the clock used to compute the purge cutoff.
func (j *DedupJanitor) WithClock(now func() time.Time) *DedupJanitor {
	j.now = now
	return j
}

// Start begins the purge loop. Returns an error if already running.
func (j *DedupJanitor) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return fmt.Errorf("dedup janitor is already running")
	}
	j.running = true
	j.stopCh = make(chan struct{})
	j.doneCh = make(chan struct{})
	j.mu.Unlock()

	go j.runLoop(ctx)

	slog.InfoContext(ctx, "Dedup janitor started",
		log.FieldComponent, log.ComponentDedup,
		"retention", j.config.Retention,
		"interval", j.config.Interval)

	return nil
}

// Stop signals the loop and waits for it to exit.
func (j *DedupJanitor) Stop(ctx context.Context) error {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return nil
	}
	j.mu.Unlock()

	close(j.stopCh)

	select {
	case <-j.doneCh:
		slog.InfoContext(ctx, "Dedup janitor stopped gracefully",
			log.FieldComponent, log.ComponentDedup)
	case <-ctx.Done():
		slog.WarnContext(ctx, "Dedup janitor stop timed out",
			log.FieldComponent, log.ComponentDedup)
		return ctx.Err()
	}

	j.mu.Lock()
	j.running = false
	j.mu.Unlock()

	return nil
}

func (j *DedupJanitor) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

func (j *DedupJanitor) runLoop(ctx context.Context) {
	defer close(j.doneCh)

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	// Purge immediately on startup
	j.purge(ctx)

	for {
		select {
		case <-j.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.purge(ctx)
		}
	}
}

func (j *DedupJanitor) purge(ctx context.Context) {
	if _, err := j.PurgeOnce(ctx); err != nil {
		fields := log.NewFields().
			WithComponent(log.ComponentDedup).
			WithOperation(log.OpPurge).
			WithError(err)
		slog.ErrorContext(ctx, "Failed to purge notification history", fields.ToSlice()...)
	}
}

// PurgeOnce removes every entry sent before now minus the retention window.
func (j *DedupJanitor) PurgeOnce(ctx context.Context) (int, error) {
	start := time.Now()
	cutoff := j.now().Add(-j.config.Retention)

	n, err := j.store.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge notifications before %s: %w", cutoff.Format(time.RFC3339), err)
	}

	if n > 0 {
		slog.InfoContext(ctx, "Purged expired notification history",
			log.FieldComponent, log.ComponentDedup,
			log.FieldOperation, log.OpPurge,
			log.FieldCount, n,
			"cutoff", cutoff,
			log.FieldDuration, time.Since(start))
	}
	return n, nil
}
