package kv

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps entries in process memory. Expired entries are dropped
// lazily on access and in bulk by CleanupExpired.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Entry
	now  func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]Entry), now: time.Now}
}

func (m *MemoryStore) expired(e Entry, now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

func (m *MemoryStore) Get(key string) (*Entry, error) {
	m.mu.RLock()
	e, ok := m.data[key]
	m.mu.RUnlock()
	if !ok || m.expired(e, m.now()) {
		return nil, nil
	}
	out := e
	out.Value = append([]byte(nil), e.Value...)
	return &out, nil
}

func (m *MemoryStore) Put(key string, value []byte, opts PutOptions) error {
	if len(value) > MaxValueSize {
		return ErrValueTooLarge
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = Entry{
		Value:     append([]byte(nil), value...),
		Metadata:  opts.Metadata,
		ExpiresAt: opts.ExpiresAt,
	}
	return nil
}

func (m *MemoryStore) Delete(key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.data[key]
	if !ok {
		return false, nil
	}
	delete(m.data, key)
	return !m.expired(e, m.now()), nil
}

func (m *MemoryStore) List(opts ListOptions) (*ListResult, error) {
	now := m.now()
	m.mu.RLock()
	keys := make([]string, 0, len(m.data))
	for k, e := range m.data {
		if m.expired(e, now) || !strings.HasPrefix(k, opts.Prefix) {
			continue
		}
		keys = append(keys, k)
	}
	m.mu.RUnlock()
	sort.Strings(keys)
	return page(keys, opts), nil
}

// CleanupExpired removes every expired entry and reports how many went.
func (m *MemoryStore) CleanupExpired() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, e := range m.data {
		if m.expired(e, now) {
			delete(m.data, k)
			n++
		}
	}
	return n
}

// Close is a no-op; it satisfies Store.
func (m *MemoryStore) Close() error { return nil }
