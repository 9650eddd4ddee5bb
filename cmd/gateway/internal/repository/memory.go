package repository

import (
	"context"
	"sync"
	"time"
)

// Compile-time check to ensure MemoryCache implements ResponseCache
var _ ResponseCache = (*MemoryCache)(nil)

type entry struct {
	value    []byte
	storedAt time.Time
	ttl      time.Duration
}

func (e entry) valid(now time.Time) bool {
	return now.Sub(e.storedAt) < e.ttl
}

// MemoryCache is a process-local cache with lazy expiry: stale entries are
// dropped when read, never swept in the background.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return NewMemoryCacheWithClock(time.Now)
}

// NewMemoryCacheWithClock is used by tests to control expiry.
func NewMemoryCacheWithClock(now func() time.Time) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]entry),
		now:     now,
	}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.valid(m.now()) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	// Entries are never mutated in place; callers may reuse their slice.
	buf := make([]byte, len(value))
	copy(buf, value)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry{value: buf, storedAt: m.now(), ttl: ttl}
	return nil
}

func (m *MemoryCache) Invalidate(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Len reports stored entries, including expired ones not yet read.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryCache) Close() error { return nil }
