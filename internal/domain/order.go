package domain

import "time"

// Order is the tracking view of an order placed with the commerce backend.
type Order struct {
	InvoiceID   string      `json:"invoiceId"`
	Status      string      `json:"status"`
	PayMode     string      `json:"payMode,omitempty"`
	SubTotal    int64       `json:"subTotal"`
	Discount    int64       `json:"discount"`
	DeliveryFee int64       `json:"deliveryFee"`
	Total       int64       `json:"total"`
	CreatedAt   time.Time   `json:"createdAt"`
	Lines       []OrderLine `json:"lines,omitempty"`
}

type OrderLine struct {
	ProductID string `json:"productId"`
	Name      string `json:"name,omitempty"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
	Size      string `json:"size,omitempty"`
}
