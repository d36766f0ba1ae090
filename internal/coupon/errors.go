package coupon

import (
	"fmt"

	"gadget-storefront/internal/pricing"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Every error message here is shown to the shopper as is.
var (
	ErrEmptyCode   = errors.New("Please enter a coupon code")
	ErrUnavailable = errors.New("Unable to validate coupon")
	ErrApplyFailed = errors.New("Failed to apply coupon")
	ErrInvalidCode = errors.New("Invalid coupon code")
	ErrExpired     = errors.New("This coupon has expired")
)

// MinimumOrderError rejects a subtotal below the coupon's minimum order amount.
type MinimumOrderError struct {
	Minimum decimal.Decimal
}

func (e *MinimumOrderError) Error() string {
	return fmt.Sprintf("Minimum order amount of %s is required for this coupon", pricing.FormatAmount(e.Minimum.Ceil().IntPart()))
}

// IsRejection reports whether err is a business-rule rejection of an
// otherwise valid lookup: unknown code, expired, or minimum not met.
func IsRejection(err error) bool {
	if errors.Is(err, ErrInvalidCode) || errors.Is(err, ErrExpired) {
		return true
	}
	var minErr *MinimumOrderError
	return errors.As(err, &minErr)
}
