// Package storage is the single seam for device-local durable state: carts,
// last-used checkout contacts and device sessions all go through a Bridge.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gadget-storefront/internal/domain"
	"go.uber.org/zap"
)

// Fixed key names, scoped per device with Key.
const (
	CartKey    = "cart"
	ContactKey = "checkout_contact"
)

// Bridge is a durable key-value store. Load returns domain.ErrNotFound when
// the key has never been saved.
type Bridge interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Key scopes name to a single device.
func Key(deviceID, name string) string {
	return "device/" + deviceID + "/" + name
}

// LoadJSON decodes the value stored under key. Any failure, including
// malformed JSON, is logged and reported as "no saved data".
func LoadJSON[T any](ctx context.Context, b Bridge, key string, logger *zap.Logger) (T, bool) {
	var out T
	if logger == nil {
		logger = zap.NewNop()
	}
	raw, err := b.Load(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("storage load failed", zap.String("key", key), zap.Error(err))
		}
		return out, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		logger.Warn("storage value malformed", zap.String("key", key), zap.Error(err))
		var zero T
		return zero, false
	}
	return out, true
}

// SaveJSON encodes v and stores it under key. Failures are logged and
// returned; best-effort callers ignore the error.
func SaveJSON(ctx context.Context, b Bridge, key string, v any, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	raw, err := json.Marshal(v)
	if err != nil {
		logger.Warn("storage encode failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := b.Save(ctx, key, raw); err != nil {
		logger.Warn("storage save failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
