package pricing

// Totals is the order summary shown at checkout. It is derived on demand and
// never stored.
type Totals struct {
	Subtotal    int64 `json:"subtotal"`
	DeliveryFee int64 `json:"deliveryFee"`
	Discount    int64 `json:"discount"`
	GrandTotal  int64 `json:"grandTotal"`
}

// Compute combines the components into a grand total. No clamping happens
// here; the coupon engine bounds the discount against the subtotal.
func Compute(subtotal, deliveryFee, discount int64) Totals {
	return Totals{
		Subtotal:    subtotal,
		DeliveryFee: deliveryFee,
		Discount:    discount,
		GrandTotal:  subtotal + deliveryFee - discount,
	}
}

// Display is Totals formatted for the storefront.
type Display struct {
	Subtotal    string `json:"subtotal"`
	DeliveryFee string `json:"deliveryFee"`
	Discount    string `json:"discount"`
	GrandTotal  string `json:"grandTotal"`
}

func (t Totals) Display() Display {
	return Display{
		Subtotal:    FormatAmount(t.Subtotal),
		DeliveryFee: FormatAmount(t.DeliveryFee),
		Discount:    FormatAmount(t.Discount),
		GrandTotal:  FormatAmount(t.GrandTotal),
	}
}
