package storage

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value   []byte
	written time.Time
}

// MemoryStore keeps entries in process memory. Expired entries are
// dropped on access, and every write sweeps the whole map at most once
// per sweepEvery.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu        sync.RWMutex
	entries   map[string]memoryEntry
	lastSweep time.Time
}

const sweepEvery = time.Minute

// NewMemoryStore creates a MemoryStore. A ttl of zero keeps entries forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, entries: make(map[string]memoryEntry)}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if expired(e.written, m.ttl, m.now()) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Put implements Store.
func (m *MemoryStore) Put(_ context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	now := m.now()
	m.mu.Lock()
	m.entries[key] = memoryEntry{value: stored, written: now}
	if m.ttl > 0 && now.Sub(m.lastSweep) >= sweepEvery {
		m.sweepLocked(now)
	}
	m.mu.Unlock()
	return nil
}

// sweepLocked removes expired entries. m.mu must be held for writing.
func (m *MemoryStore) sweepLocked(now time.Time) {
	for key, e := range m.entries {
		if expired(e.written, m.ttl, now) {
			delete(m.entries, key)
		}
	}
	m.lastSweep = now
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }

// Len returns the number of entries, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
