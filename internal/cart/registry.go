package cart

import (
	"context"
	"sync"
	"time"

	"gadget-storefront/internal/storage"
	"go.uber.org/zap"
)

type registryEntry struct {
	store    *Store
	lastUsed time.Time
}

// Registry owns one Store per device, opened on first use and released after
// a period of inactivity.
type Registry struct {
	mu     sync.Mutex
	bridge storage.Bridge
	logger *zap.Logger
	now    func() time.Time
	stores map[string]*registryEntry
}

func NewRegistry(bridge storage.Bridge, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		bridge: bridge,
		logger: logger,
		now:    time.Now,
		stores: make(map[string]*registryEntry),
	}
}

// Get returns the device's store, rehydrating it from the bridge the first
// time. The bridge is read without holding the registry lock.
func (r *Registry) Get(ctx context.Context, deviceID string) *Store {
	if s, ok := r.lookup(deviceID); ok {
		return s
	}

	opened := Open(ctx, r.bridge, deviceID, r.logger)

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.stores[deviceID]; ok {
		e.lastUsed = r.now()
		return e.store
	}
	r.stores[deviceID] = &registryEntry{store: opened, lastUsed: r.now()}
	return opened
}

func (r *Registry) lookup(deviceID string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.stores[deviceID]
	if !ok {
		return nil, false
	}
	e.lastUsed = r.now()
	return e.store, true
}

// EvictIdle releases stores not used within idle and reports how many were
// dropped. Their carts are already saved, so the next Get rehydrates them.
func (r *Registry) EvictIdle(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.stores {
		if e.lastUsed.Before(cutoff) {
			delete(r.stores, id)
			n++
		}
	}
	return n
}

// Len is the number of stores held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}
