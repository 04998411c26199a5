package memory

import (
	"context"
	"sync"

	"github.com/tathagata1/Pipegent/core"
)

// InMemoryStore is a process-local HistoryStore without durable projection.
//
// Concurrency: protected by RWMutex.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []core.Message
}

// NewInMemoryStore creates a new in-memory history store seeded with entries.
func NewInMemoryStore(entries ...core.Message) *InMemoryStore {
	return &InMemoryStore{entries: core.CloneMessages(entries)}
}

// Load returns the buffer; there is nothing to re-read.
func (m *InMemoryStore) Load(_ context.Context) ([]core.Message, error) {
	return m.Entries(), nil
}

// Entries returns a snapshot of the buffer.
func (m *InMemoryStore) Entries() []core.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return core.CloneMessages(m.entries)
}

// Append adds entries to the buffer.
func (m *InMemoryStore) Append(_ context.Context, entries ...core.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entries...)
	return nil
}

// RefreshIfStale is a no-op; the buffer cannot change behind the store's back.
func (m *InMemoryStore) RefreshIfStale(_ context.Context) error { return nil }

// Reset empties the buffer.
func (m *InMemoryStore) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	return nil
}
