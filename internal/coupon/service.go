package coupon

import (
	"context"
	"strings"
	"time"

	"gadget-storefront/internal/domain"
	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// Catalog lists every coupon the backend currently issues. There is no lookup
// by code; matching happens locally.
type Catalog interface {
	ListCoupons(ctx context.Context) ([]domain.Coupon, error)
}

// Service fetches the catalog once per apply and hands it to Resolve.
type Service struct {
	catalog Catalog
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(catalog Catalog, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{catalog: catalog, logger: logger, now: time.Now}
}

// Apply validates code against the live catalog for subtotal. A blank code is
// rejected without touching the network. Errors are always one of the
// package's user-facing errors.
func (s *Service) Apply(ctx context.Context, code string, subtotal int64) (Resolution, error) {
	if strings.TrimSpace(code) == "" {
		return Resolution{}, ErrEmptyCode
	}

	catalog, err := s.catalog.ListCoupons(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrBackendUnsuccessful) {
			s.logger.Warn("coupon catalog unavailable", zap.Error(err))
			return Resolution{}, ErrUnavailable
		}
		s.logger.Error("coupon catalog fetch failed", zap.Error(err))
		return Resolution{}, ErrApplyFailed
	}

	res, err := Resolve(code, subtotal, catalog, s.now())
	if err != nil {
		s.logger.Info("coupon rejected",
			zap.String("code", NormalizeCode(code)),
			zap.Int64("subtotal", subtotal),
			zap.Error(err),
		)
		return Resolution{}, err
	}
	s.logger.Info("coupon resolved",
		zap.String("code", res.Coupon.Code),
		zap.Int64("subtotal", subtotal),
		zap.Int64("discount", res.Discount),
	)
	return res, nil
}
