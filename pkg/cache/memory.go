package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an unbounded in-process store. Expired entries stay in the map
// until the key is written again.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) (*Entry, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || !m.now().Before(e.ExpiresAt) {
		return nil, false
	}
	return e, true
}

func (m *Memory) Set(_ context.Context, key string, entry *Entry, ttl time.Duration) {
	stored := *entry
	stored.ExpiresAt = m.now().Add(ttl)

	m.mu.Lock()
	m.entries[key] = &stored
	m.mu.Unlock()
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
