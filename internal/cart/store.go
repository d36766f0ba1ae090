// Package cart holds the per-device cart: line items, derived totals and the
// subscribers that react to every change.
package cart

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"gadget-storefront/internal/domain"
	"gadget-storefront/internal/pricing"
	"gadget-storefront/internal/storage"
	"go.uber.org/zap"
)

// Snapshot is an immutable view of the cart after a change.
type Snapshot struct {
	Lines    []domain.CartLineItem `json:"lines"`
	Count    int                   `json:"count"`
	Subtotal int64                 `json:"subtotal"`
	Open     bool                  `json:"open"`
}

// MaxQuantity bounds a single line. Merges saturate at it.
const MaxQuantity = 999

// Listener receives the snapshot produced by a mutation.
type Listener func(Snapshot)

// Store is the cart of a single device. Mutations are serialized and written
// through to the bridge; listeners are called after the lock is released.
type Store struct {
	mu        sync.Mutex
	key       string
	bridge    storage.Bridge
	logger    *zap.Logger
	lines     []domain.CartLineItem
	open      bool
	listeners map[int]Listener
	nextID    int
}

// Open rehydrates the cart saved for deviceID. Missing or unreadable data
// yields an empty cart.
func Open(ctx context.Context, bridge storage.Bridge, deviceID string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("device", deviceID))
	s := &Store{
		key:       storage.Key(deviceID, storage.CartKey),
		bridge:    bridge,
		logger:    logger,
		listeners: make(map[int]Listener),
	}
	saved, ok := storage.LoadJSON[[]domain.CartLineItem](ctx, bridge, s.key, logger)
	if !ok {
		return s
	}
	for _, line := range saved {
		if strings.TrimSpace(line.ProductID) == "" || line.Quantity < 1 {
			logger.Warn("dropping invalid saved cart line",
				zap.String("product", line.ProductID),
				zap.Int("quantity", line.Quantity),
			)
			continue
		}
		if line.VariantKey == "" {
			line.VariantKey = domain.DefaultVariantKey
		}
		line.Quantity = min(line.Quantity, MaxQuantity)
		line.UnitPrice = min(max(line.UnitPrice, 0), pricing.MaxUnitPrice)
		s.lines = append(s.lines, line)
	}
	return s
}

// VariantKey derives the line identity for a variant selection. Map keys are
// sorted by the encoder so equal selections produce equal keys.
func VariantKey(variants map[string]string) string {
	if len(variants) == 0 {
		return domain.DefaultVariantKey
	}
	raw, err := json.Marshal(variants)
	if err != nil {
		return domain.DefaultVariantKey
	}
	return string(raw)
}

// AddItem merges quantity into the matching line or appends a new one, then
// marks the cart open. A quantity below one counts as one; a line never
// exceeds MaxQuantity.
func (s *Store) AddItem(ctx context.Context, product domain.Product, quantity int, variants map[string]string) Snapshot {
	quantity = min(max(quantity, 1), MaxQuantity)
	key := VariantKey(variants)

	return s.mutate(ctx, func() bool {
		if i := s.indexOf(product.ID, key); i >= 0 {
			s.lines[i].Quantity = min(s.lines[i].Quantity+quantity, MaxQuantity)
		} else {
			s.lines = append(s.lines, domain.CartLineItem{
				ProductID:  product.ID,
				VariantKey: key,
				UnitPrice:  pricing.ParseDisplayPrice(product.Price),
				Quantity:   quantity,
				Name:       product.Name,
				ImageURL:   product.ImageURL,
				Variants:   copyVariants(variants),
			})
		}
		s.open = true
		return true
	})
}

// RemoveItem drops the line; absent lines are ignored.
func (s *Store) RemoveItem(ctx context.Context, productID, variantKey string) Snapshot {
	return s.mutate(ctx, func() bool {
		i := s.indexOf(productID, variantKey)
		if i < 0 {
			return false
		}
		s.lines = append(s.lines[:i], s.lines[i+1:]...)
		return true
	})
}

// UpdateQuantity sets an absolute quantity. Values below one are ignored;
// removal is explicit. Values above MaxQuantity are capped.
func (s *Store) UpdateQuantity(ctx context.Context, productID, variantKey string, quantity int) Snapshot {
	return s.mutate(ctx, func() bool {
		if quantity < 1 {
			return false
		}
		quantity = min(quantity, MaxQuantity)
		i := s.indexOf(productID, variantKey)
		if i < 0 || s.lines[i].Quantity == quantity {
			return false
		}
		s.lines[i].Quantity = quantity
		return true
	})
}

func (s *Store) Clear(ctx context.Context) Snapshot {
	return s.mutate(ctx, func() bool {
		if len(s.lines) == 0 {
			return false
		}
		s.lines = nil
		return true
	})
}

// SetOpen toggles the cart drawer flag. It is not persisted.
func (s *Store) SetOpen(open bool) {
	s.mu.Lock()
	s.open = open
	s.mu.Unlock()
}

func (s *Store) Count() int {
	return s.Snapshot().Count
}

func (s *Store) Subtotal() int64 {
	return s.Snapshot().Subtotal
}

func (s *Store) Lines() []domain.CartLineItem {
	return s.Snapshot().Lines
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn for every subsequent change. The returned func
// unregisters it.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) mutate(ctx context.Context, apply func() bool) Snapshot {
	s.mu.Lock()
	if !apply() {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap
	}
	// In-memory state stays authoritative when the write fails.
	_ = storage.SaveJSON(ctx, s.bridge, s.key, s.lines, s.logger)
	snap := s.snapshotLocked()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
	return snap
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{Open: s.open}
	if len(s.lines) > 0 {
		snap.Lines = make([]domain.CartLineItem, len(s.lines))
	}
	for i, line := range s.lines {
		line.Variants = copyVariants(line.Variants)
		snap.Lines[i] = line
		snap.Count += line.Quantity
		snap.Subtotal += line.LineTotal()
	}
	return snap
}

func (s *Store) indexOf(productID, variantKey string) int {
	for i, line := range s.lines {
		if line.ProductID == productID && line.VariantKey == variantKey {
			return i
		}
	}
	return -1
}

func copyVariants(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
