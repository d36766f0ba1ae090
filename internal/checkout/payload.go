// Package checkout turns a device's cart and checkout draft into an order on
// the commerce backend.
package checkout

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"gadget-storefront/internal/commerce"
	"gadget-storefront/internal/domain"
	"gadget-storefront/internal/pricing"
	"github.com/go-faster/errors"
)

const (
	DefaultPayMode = "cod"
	DefaultSize    = "Free Size"
)

var (
	ErrAddressIncomplete    = errors.New("Please select both District and Area")
	ErrInvalidPhone         = errors.New("Please enter a valid phone number (e.g. 01712345678)")
	ErrEmptyCart            = errors.New("Your cart is empty")
	ErrSubmissionInProgress = errors.New("Your order is already being placed")
	ErrOrderFailed          = errors.New("Failed to place order")
	ErrMissingInvoice       = errors.New("Order was placed but no invoice number was returned, please contact support")
)

// Eleven digits: 01, an operator digit 3-9, then eight more.
var phonePattern = regexp.MustCompile(`^01[3-9]\d{8}$`)

// Form is the contact and address data entered at checkout.
type Form struct {
	FirstName string `json:"firstName"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Address   string `json:"address"`
	District  string `json:"district"`
	Area      string `json:"area"`
	PayMode   string `json:"payMode"`
}

func (f Form) contact() domain.Contact {
	return domain.Contact{
		FirstName: strings.TrimSpace(f.FirstName),
		Phone:     strings.TrimSpace(f.Phone),
		Email:     strings.TrimSpace(f.Email),
		Address:   strings.TrimSpace(f.Address),
		District:  strings.TrimSpace(f.District),
		City:      strings.TrimSpace(f.Area),
	}
}

// ValidateSubmission runs the local checks that gate every order. The
// address is checked before the phone.
func ValidateSubmission(f Form) error {
	if strings.TrimSpace(f.District) == "" || strings.TrimSpace(f.Area) == "" {
		return ErrAddressIncomplete
	}
	if !phonePattern.MatchString(strings.TrimSpace(f.Phone)) {
		return ErrInvalidPhone
	}
	return nil
}

// SizeLabel joins the selected variant values in key order.
func SizeLabel(variants map[string]string) string {
	keys := make([]string, 0, len(variants))
	for k, v := range variants {
		if strings.TrimSpace(v) != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return DefaultSize
	}
	sort.Strings(keys)
	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = strings.TrimSpace(variants[k])
	}
	return strings.Join(values, ", ")
}

// BuildPayload assembles the order-creation body. couponCode is empty when no
// coupon is applied.
func BuildPayload(lines []domain.CartLineItem, f Form, totals pricing.Totals, couponCode string, now time.Time) commerce.OrderRequest {
	payMode := strings.TrimSpace(f.PayMode)
	if payMode == "" {
		payMode = DefaultPayMode
	}
	products := make([]commerce.OrderProduct, 0, len(lines))
	for _, line := range lines {
		products = append(products, commerce.OrderProduct{
			ProductID: line.ProductID,
			Qty:       line.Quantity,
			Price:     line.UnitPrice,
			Size:      SizeLabel(line.Variants),
		})
	}
	c := f.contact()
	return commerce.OrderRequest{
		PayMode:         payMode,
		SubTotal:        totals.Subtotal,
		Discount:        totals.Discount,
		DeliveryFee:     totals.DeliveryFee,
		Products:        products,
		CustomerName:    c.FirstName,
		CustomerAddress: c.Address,
		CustomerPhone:   c.Phone,
		CustomerEmail:   c.Email,
		District:        c.District,
		Area:            c.City,
		CouponCode:      couponCode,
		CreatedAt:       now.UTC().Format(time.RFC3339),
	}
}
