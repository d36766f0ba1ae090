package checkout

import (
	"gadget-storefront/internal/cart"
	"gadget-storefront/internal/delivery"
	"gadget-storefront/internal/domain"
	"gadget-storefront/internal/pricing"
)

// Draft is the transient checkout state of one device. It is rebuilt from the
// saved contact after every successful order.
type Draft struct {
	Contact     domain.Contact `json:"contact"`
	District    string         `json:"district"`
	Area        string         `json:"area"`
	Delivery    delivery.Quote `json:"delivery"`
	CouponCode  string         `json:"couponCode,omitempty"`
	Coupon      *domain.Coupon `json:"coupon,omitempty"`
	Discount    int64          `json:"discount"`
	CouponError string         `json:"couponError,omitempty"`
	Submitting  bool           `json:"submitting"`
}

// View is a Draft with the cart it prices.
type View struct {
	Draft   Draft           `json:"draft"`
	Cart    cart.Snapshot   `json:"cart"`
	Totals  pricing.Totals  `json:"totals"`
	Display pricing.Display `json:"display"`
}

// Confirmation is returned for a placed order.
type Confirmation struct {
	InvoiceID string         `json:"invoiceId"`
	Totals    pricing.Totals `json:"totals"`
	Message   string         `json:"message"`
}

func newDraft(contact domain.Contact) Draft {
	return Draft{
		Contact:  contact,
		District: contact.District,
		Area:     contact.City,
		Delivery: delivery.QuoteFor(contact.District, contact.City),
	}
}

func (d *Draft) detachCoupon(reason string) {
	d.Coupon = nil
	d.Discount = 0
	d.CouponError = reason
}

func newView(d Draft, snap cart.Snapshot) View {
	totals := pricing.Compute(snap.Subtotal, d.Delivery.Fee, d.Discount)
	return View{
		Draft:   d,
		Cart:    snap,
		Totals:  totals,
		Display: totals.Display(),
	}
}
