// Package device issues the bearer tokens that tie a storefront client to its
// cart and checkout draft.
package device

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"time"

	"gadget-storefront/internal/domain"
	"gadget-storefront/internal/storage"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

var ErrInvalidToken = errors.New("invalid device token")

// Session is returned once, at issue time. Only a hash of Token is stored.
type Session struct {
	DeviceID  string    `json:"deviceId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type tokenRecord struct {
	DeviceID  string    `json:"deviceId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Service struct {
	bridge storage.Bridge
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

func New(bridge storage.Bridge, ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 90 * 24 * time.Hour
	}
	return &Service{bridge: bridge, ttl: ttl, logger: logger, now: time.Now}
}

// Issue creates a fresh device id and token.
func (s *Service) Issue(ctx context.Context) (Session, error) {
	deviceID := uuid.NewString()
	expiresAt := s.now().Add(s.ttl)
	for i := 0; i < 5; i++ {
		token, err := randomToken()
		if err != nil {
			return Session{}, err
		}
		key := tokenKey(token)
		if _, err := s.bridge.Load(ctx, key); err == nil {
			continue
		} else if !errors.Is(err, domain.ErrNotFound) {
			return Session{}, errors.Wrap(err, "check token")
		}
		if err := storage.SaveJSON(ctx, s.bridge, key, tokenRecord{DeviceID: deviceID, ExpiresAt: expiresAt}, s.logger); err != nil {
			return Session{}, err
		}
		s.logger.Info("device session issued", zap.String("device", deviceID))
		return Session{DeviceID: deviceID, Token: token, ExpiresAt: expiresAt}, nil
	}
	return Session{}, errors.Wrap(domain.ErrAlreadyExists, "token collision")
}

// Lookup resolves a token to its device id. Expired tokens are deleted.
func (s *Service) Lookup(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	key := tokenKey(token)
	raw, err := s.bridge.Load(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", ErrInvalidToken
		}
		return "", errors.Wrap(err, "load token")
	}
	var rec tokenRecord
	if err := json.Unmarshal(raw, &rec); err != nil || rec.DeviceID == "" {
		s.logger.Warn("device token record malformed", zap.Error(err))
		return "", ErrInvalidToken
	}
	if s.now().After(rec.ExpiresAt) {
		if err := s.bridge.Delete(ctx, key); err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("expired token delete failed", zap.Error(err))
		}
		return "", ErrInvalidToken
	}
	return rec.DeviceID, nil
}

func (s *Service) TTLSeconds() int {
	return int(s.ttl.Seconds())
}

func tokenKey(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return "token/" + hex.EncodeToString(sum[:])
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
