package cache

import (
	"sync"
	"time"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryProvider is an in-process TTL cache with a hard entry cap. Expired
// entries are dropped lazily on read and on insert pressure; there is no
// background sweeper.
type MemoryProvider struct {
	mu         sync.Mutex
	entries    map[string]entry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// NewMemoryProvider builds a cache holding at most maxEntries values for ttl
// each.
func NewMemoryProvider(ttl time.Duration, maxEntries int) *MemoryProvider {
	return &MemoryProvider{
		entries:    make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (m *MemoryProvider) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	if m.now().After(e.expiresAt) {
		delete(m.entries, key)
		return nil, ErrCacheMiss
	}
	return e.value, nil
}

func (m *MemoryProvider) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.entries) >= m.maxEntries {
		m.evictLocked()
	}
	m.entries[key] = entry{value: value, expiresAt: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryProvider) Del(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryProvider) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]entry)
	return nil
}

// evictLocked clears expired entries first; if the cache is still full it
// drops the entry closest to expiry.
func (m *MemoryProvider) evictLocked() {
	now := m.now()
	for key, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, key)
		}
	}
	if len(m.entries) < m.maxEntries {
		return
	}

	var oldestKey string
	var oldest time.Time
	first := true
	for key, e := range m.entries {
		if first || e.expiresAt.Before(oldest) {
			oldestKey, oldest = key, e.expiresAt
			first = false
		}
	}
	delete(m.entries, oldestKey)
}
