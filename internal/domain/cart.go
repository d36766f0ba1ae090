package domain

// DefaultVariantKey identifies a line whose product has no selected variants.
const DefaultVariantKey = "default"

// CartLineItem is one row of a cart. ProductID and VariantKey together are
// unique within a cart.
type CartLineItem struct {
	ProductID  string            `json:"productId"`
	VariantKey string            `json:"variantKey"`
	UnitPrice  int64             `json:"unitPrice"`
	Quantity   int               `json:"quantity"`
	Name       string            `json:"name"`
	ImageURL   string            `json:"imageUrl,omitempty"`
	Variants   map[string]string `json:"variants,omitempty"`
}

// LineTotal is UnitPrice multiplied by Quantity.
func (l CartLineItem) LineTotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}
