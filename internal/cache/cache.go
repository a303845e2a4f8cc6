// Package cache holds small in-process caches for derived read values.
package cache

import (
	"log/slog"
	"sync"
	"time"

	"budgetbuddy/internal/log"
)

// Cache is the read-through surface the HTTP layer uses.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	// Delete drops key so the next read recomputes it.
	Delete(key string)
	Size() int
}

// Cleaner is implemented by caches whose entries expire.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically drops expired entries from the registered caches.
type Janitor struct {
	mu       sync.Mutex
	caches   []Cleaner
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

func NewJanitor(caches ...Cleaner) *Janitor {
	return &Janitor{caches: caches}
}

// Register adds a cache to the cleanup rounds.
func (j *Janitor) Register(c Cleaner) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.caches = append(j.caches, c)
}

// Start runs cleanup rounds every interval until Stop is called.
func (j *Janitor) Start(interval time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.stopCh != nil {
		return
	}
	j.stopCh = make(chan struct{})
	j.doneCh = make(chan struct{})
	go j.run(interval, j.stopCh, j.doneCh)
}

func (j *Janitor) run(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := j.CleanOnce(); n > 0 {
				slog.Debug("Expired cache entries removed",
					log.FieldComponent, log.ComponentHTTP,
					log.FieldCount, n)
			}
		case <-stop:
			return
		}
	}
}

// CleanOnce runs a single cleanup round and returns how many entries were
// dropped.
func (j *Janitor) CleanOnce() int {
	j.mu.Lock()
	caches := append([]Cleaner(nil), j.caches...)
	j.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop ends the cleanup loop and waits for it. Safe to call more than once
// or without Start.
func (j *Janitor) Stop() {
	j.mu.Lock()
	stop, done := j.stopCh, j.doneCh
	j.mu.Unlock()
	if stop == nil {
		return
	}
	j.stopOnce.Do(func() { close(stop) })
	<-done
}
