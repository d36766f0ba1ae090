package domain

// Product is the catalog entry a storefront passes when adding to the cart.
// Price is the display string shown on the product page, e.g. "৳ 12,500".
type Product struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	ImageURL string `json:"imageUrl,omitempty"`
}
