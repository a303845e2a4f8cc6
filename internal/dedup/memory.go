// Package dedup provides notification dedup stores backed by process
// memory and by Redis.
package dedup

import (
	"context"
	"strings"
	"sync"
	"time"

	"budgetbuddy/internal/notify"
)

// Memory is a process-local dedup store. Entries are lost on restart, which
// at worst repeats a notification.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

var _ notify.DedupStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]time.Time)}
}

func (m *Memory) Has(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[key]
	return ok, nil
}

func (m *Memory) MarkSent(_ context.Context, key string, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; !ok {
		m.entries[key] = sentAt
	}
	return nil
}

func (m *Memory) PurgeOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key, sentAt := range m.entries {
		if sentAt.Before(cutoff) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (m *Memory) Reset(_ context.Context, prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed, nil
}

// SentAt returns when key was first marked.
func (m *Memory) SentAt(key string) (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.entries[key]
	return t, ok
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
