// Package coupon validates shopper-entered codes against the coupon catalog
// and computes bounded discounts.
package coupon

import (
	"fmt"
	"strings"
	"time"

	"gadget-storefront/internal/domain"
	"gadget-storefront/internal/pricing"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Resolution is a coupon that passed validation together with the discount
// it grants on the subtotal it was resolved against.
type Resolution struct {
	Coupon   domain.Coupon `json:"coupon"`
	Subtotal int64         `json:"subtotal"`
	Discount int64         `json:"discount"`
}

// SuccessMessage is the notification shown after a coupon is applied.
func (r Resolution) SuccessMessage() string {
	return fmt.Sprintf("Coupon %s applied! You saved %s", r.Coupon.Code, pricing.FormatAmount(r.Discount))
}

// NormalizeCode trims and upper-cases a code for matching.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Resolve finds code in catalog and validates it for subtotal. Checks run in
// order and the first failure wins: unknown code, expiry, minimum order.
func Resolve(code string, subtotal int64, catalog []domain.Coupon, now time.Time) (Resolution, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return Resolution{}, ErrEmptyCode
	}

	var (
		match domain.Coupon
		found bool
	)
	for _, c := range catalog {
		if NormalizeCode(c.Code) == normalized {
			match = c
			found = true
			break
		}
	}
	if !found {
		return Resolution{}, ErrInvalidCode
	}
	match.Code = normalized

	if match.ExpiredAt(now) {
		return Resolution{}, ErrExpired
	}
	if match.MinimumOrderAmount.IsPositive() && decimal.NewFromInt(subtotal).LessThan(match.MinimumOrderAmount) {
		return Resolution{}, &MinimumOrderError{Minimum: match.MinimumOrderAmount}
	}

	return Resolution{
		Coupon:   match,
		Subtotal: subtotal,
		Discount: Discount(match, subtotal),
	}, nil
}

// Discount computes the discount c grants on subtotal. The result is always
// within [0, subtotal] and, when the coupon has a positive limit, at most the
// limit.
func Discount(c domain.Coupon, subtotal int64) int64 {
	if subtotal <= 0 {
		return 0
	}
	var raw decimal.Decimal
	switch c.AmountType {
	case domain.AmountPercentage:
		raw = decimal.NewFromInt(subtotal).Mul(c.Amount).Div(hundred)
	default:
		raw = c.Amount
	}
	discount := raw.Round(0).IntPart()

	if c.AmountLimit.IsPositive() {
		if limit := c.AmountLimit.Floor().IntPart(); discount > limit {
			discount = limit
		}
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}
