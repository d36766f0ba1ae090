package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AmountType selects how a coupon amount is turned into a discount.
type AmountType string

const (
	AmountFlat       AmountType = "flat"
	AmountPercentage AmountType = "percentage"
)

// Coupon is a read-only snapshot of a discount code issued by the commerce backend.
type Coupon struct {
	Code               string          `json:"code"`
	AmountType         AmountType      `json:"amountType"`
	Amount             decimal.Decimal `json:"amount"`
	AmountLimit        decimal.Decimal `json:"amountLimit"`
	MinimumOrderAmount decimal.Decimal `json:"minimumOrderAmount"`
	ExpireDate         time.Time       `json:"expireDate"`
}

// ExpiredAt reports whether the coupon is no longer valid at now. A zero
// ExpireDate never expires.
func (c Coupon) ExpiredAt(now time.Time) bool {
	if c.ExpireDate.IsZero() {
		return false
	}
	return c.ExpireDate.Before(now)
}
