package cache

import (
	"context"
	"sync"
	"time"
)

// Cache stores rendered calculation results keyed by canonical input.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

const (
	// DefaultMaxEntries bounds the in-memory cache; the keys come from
	// client input.
	DefaultMaxEntries = 10000

	sweepInterval = time.Minute
)

type memoryEntry struct {
	value     string
	storedAt  time.Time
	expiresAt time.Time
}

// Memory is an in-process Cache used when no Redis address is configured.
// Expired entries are swept on writes at most once per sweepInterval, and
// once maxEntries is reached the oldest entry makes room for the new one.
type Memory struct {
	mu         sync.Mutex
	data       map[string]memoryEntry
	maxEntries int
	lastSweep  time.Time
	now        func() time.Time
}

func NewMemory() *Memory {
	return NewMemoryWithLimit(DefaultMaxEntries)
}

// NewMemoryWithLimit returns a Memory holding at most maxEntries values. A
// non-positive limit selects DefaultMaxEntries.
func NewMemoryWithLimit(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Memory{
		data:       make(map[string]memoryEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.data[key]
	if !ok {
		return "", false
	}
	if entry.expired(m.now()) {
		delete(m.data, key)
		return "", false
	}
	return entry.value, true
}

// Set stores value; a zero ttl keeps it until it is evicted.
func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if now.Sub(m.lastSweep) >= sweepInterval {
		m.sweep(now)
	}
	if _, exists := m.data[key]; !exists && len(m.data) >= m.maxEntries {
		m.sweep(now)
		if len(m.data) >= m.maxEntries {
			m.evictOldest()
		}
	}

	entry := memoryEntry{value: value, storedAt: now}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	m.data[key] = entry
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func (m *Memory) sweep(now time.Time) {
	for key, entry := range m.data {
		if entry.expired(now) {
			delete(m.data, key)
		}
	}
	m.lastSweep = now
}

func (m *Memory) evictOldest() {
	var oldestKey string
	var oldest time.Time
	found := false
	for key, entry := range m.data {
		if !found || entry.storedAt.Before(oldest) {
			oldestKey, oldest, found = key, entry.storedAt, true
		}
	}
	delete(m.data, oldestKey)
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}
