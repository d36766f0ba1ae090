package httpserver

import (
	"strings"
	"time"

	"gadget-storefront/internal/cart"
	"gadget-storefront/internal/checkout"
	"gadget-storefront/internal/domain"
	"gadget-storefront/internal/pricing"
)

type deviceResponse struct {
	DeviceID  string `json:"deviceId"`
	Token     string `json:"token"`
	TokenType string `json:"tokenType"`
	ExpiresIn int    `json:"expiresIn"`
}

type addItemRequest struct {
	ProductID string            `json:"productId"`
	Name      string            `json:"name"`
	Price     string            `json:"price"`
	ImageURL  string            `json:"imageUrl"`
	Quantity  int               `json:"quantity"`
	Variants  map[string]string `json:"variants"`
}

type updateItemRequest struct {
	ProductID  string `json:"productId"`
	VariantKey string `json:"variantKey"`
	Quantity   int    `json:"quantity"`
}

type addressRequest struct {
	District string `json:"district"`
	Area     string `json:"area"`
}

type couponRequest struct {
	Code string `json:"code"`
}

type cartResponse struct {
	LineItems       []lineItemResponse `json:"lineItems"`
	Count           int                `json:"count"`
	Subtotal        int64              `json:"subtotal"`
	SubtotalDisplay string             `json:"subtotalDisplay"`
	Open            bool               `json:"open"`
}

type lineItemResponse struct {
	ProductID        string            `json:"productId"`
	VariantKey       string            `json:"variantKey"`
	Name             string            `json:"name"`
	ImageURL         string            `json:"imageUrl,omitempty"`
	Variants         map[string]string `json:"variants,omitempty"`
	Size             string            `json:"size"`
	Quantity         int               `json:"quantity"`
	UnitPrice        int64             `json:"unitPrice"`
	UnitPriceDisplay string            `json:"unitPriceDisplay"`
	LineTotal        int64             `json:"lineTotal"`
	LineTotalDisplay string            `json:"lineTotalDisplay"`
}

type checkoutResponse struct {
	Checkout checkout.View `json:"checkout"`
	Message  string        `json:"message,omitempty"`
}

type orderResponse struct {
	InvoiceID string              `json:"invoiceId"`
	Status    string              `json:"status"`
	PayMode   string              `json:"payMode,omitempty"`
	Totals    pricing.Totals      `json:"totals"`
	Display   pricing.Display     `json:"display"`
	CreatedAt *time.Time          `json:"createdAt,omitempty"`
	LineItems []orderLineResponse `json:"lineItems"`
}

type orderLineResponse struct {
	ProductID string `json:"productId"`
	Name      string `json:"name,omitempty"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
	Size      string `json:"size,omitempty"`
}

func toCartResponse(snap cart.Snapshot) cartResponse {
	lines := make([]lineItemResponse, 0, len(snap.Lines))
	for _, line := range snap.Lines {
		name := strings.TrimSpace(line.Name)
		if name == "" {
			name = line.ProductID
		}
		lines = append(lines, lineItemResponse{
			ProductID:        line.ProductID,
			VariantKey:       line.VariantKey,
			Name:             name,
			ImageURL:         line.ImageURL,
			Variants:         line.Variants,
			Size:             checkout.SizeLabel(line.Variants),
			Quantity:         line.Quantity,
			UnitPrice:        line.UnitPrice,
			UnitPriceDisplay: pricing.FormatAmount(line.UnitPrice),
			LineTotal:        line.LineTotal(),
			LineTotalDisplay: pricing.FormatAmount(line.LineTotal()),
		})
	}
	return cartResponse{
		LineItems:       lines,
		Count:           snap.Count,
		Subtotal:        snap.Subtotal,
		SubtotalDisplay: pricing.FormatAmount(snap.Subtotal),
		Open:            snap.Open,
	}
}

func toOrderResponse(o domain.Order) orderResponse {
	totals := pricing.Totals{
		Subtotal:    o.SubTotal,
		DeliveryFee: o.DeliveryFee,
		Discount:    o.Discount,
		GrandTotal:  o.Total,
	}
	out := orderResponse{
		InvoiceID: o.InvoiceID,
		Status:    o.Status,
		PayMode:   o.PayMode,
		Totals:    totals,
		Display:   totals.Display(),
		LineItems: make([]orderLineResponse, 0, len(o.Lines)),
	}
	if !o.CreatedAt.IsZero() {
		created := o.CreatedAt
		out.CreatedAt = &created
	}
	for _, l := range o.Lines {
		out.LineItems = append(out.LineItems, orderLineResponse{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			Price:     l.Price,
			Size:      l.Size,
		})
	}
	return out
}
