package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Memory is a bounded in-process Cache. Once Capacity entries are stored,
// ristretto's admission policy decides which ones survive.
type Memory struct {
	store *ristretto.Cache[string, *Entry]
	now   func() time.Time
}

// MemoryOption configures a Memory cache.
type MemoryOption func(*Memory)

// WithClock replaces the wall clock used for expiry checks.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemory creates a cache holding at most capacity entries.
func NewMemory(capacity int64, opts ...MemoryOption) (*Memory, error) {
	if capacity <= 0 {
		capacity = 10_000
	}
	store, err := ristretto.NewCache(&ristretto.Config[string, *Entry]{
		NumCounters: capacity * 10,
		MaxCost:     capacity,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	m := &Memory{store: store, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, fingerprint string) (*Entry, bool, error) {
	entry, ok := m.store.Get(fingerprint)
	if !ok {
		return nil, false, nil
	}
	if entry.Expired(m.now()) {
		m.store.Del(fingerprint)
		return nil, false, nil
	}
	return entry, true, nil
}

// Put implements Cache. Writes are applied before Put returns. ristretto may
// refuse a write under contention or after Close; that is reported as
// ErrWriteDropped.
func (m *Memory) Put(_ context.Context, entry *Entry) error {
	if entry == nil {
		return ErrEntryRequired
	}
	if !m.store.Set(entry.Fingerprint, entry, 1) {
		return fmt.Errorf("%w: %s", ErrWriteDropped, entry.Fingerprint)
	}
	m.store.Wait()
	return nil
}

// Close implements Cache.
func (m *Memory) Close() error {
	m.store.Close()
	return nil
}
