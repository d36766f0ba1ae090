package storage

import (
	"context"
	"sync"

	"gadget-storefront/internal/domain"
)

type memoryBridge struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemory returns a process-local Bridge. Used for tests and for running the
// api without a database.
func NewMemory() Bridge {
	return &memoryBridge{entries: make(map[string][]byte)}
}

func (m *memoryBridge) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	v, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *memoryBridge) Save(_ context.Context, key string, value []byte) error {
	clone := make([]byte, len(value))
	copy(clone, value)
	m.mu.Lock()
	m.entries[key] = clone
	m.mu.Unlock()
	return nil
}

func (m *memoryBridge) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; !ok {
		return domain.ErrNotFound
	}
	delete(m.entries, key)
	return nil
}
