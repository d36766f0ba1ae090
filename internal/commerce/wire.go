package commerce

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"gadget-storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// flexDecimal accepts JSON numbers, numeric strings, "" and null. Anything
// else decodes as zero with Invalid set, so one bad field does not fail the
// whole response.
type flexDecimal struct {
	decimal.Decimal
	Invalid bool
}

func (f *flexDecimal) UnmarshalJSON(b []byte) error {
	f.Decimal = decimal.Zero
	f.Invalid = false
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		f.Invalid = true
		return nil
	}
	f.Decimal = d
	return nil
}

// flexString accepts both JSON strings and numbers, e.g. invoice ids.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type couponListResponse struct {
	Success bool        `json:"success"`
	Data    []couponDTO `json:"data"`
}

type couponDTO struct {
	CouponCode         string      `json:"coupon_code"`
	AmountType         string      `json:"coupon_amount_type"`
	Amount             flexDecimal `json:"amount"`
	AmountLimit        flexDecimal `json:"amount_limit"`
	MinimumOrderAmount flexDecimal `json:"minimum_order_amount"`
	ExpireDate         string      `json:"expire_date"`
}

type couponUsageRequest struct {
	Code    string `json:"code"`
	StoreID string `json:"store_id,omitempty"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// OrderRequest is the body of the order-creation call.
type OrderRequest struct {
	PayMode         string         `json:"pay_mode"`
	SubTotal        int64          `json:"sub_total"`
	Discount        int64          `json:"discount"`
	DeliveryFee     int64          `json:"delivery_fee"`
	Products        []OrderProduct `json:"product"`
	CustomerName    string         `json:"delivery_customer_name"`
	CustomerAddress string         `json:"delivery_customer_address"`
	CustomerPhone   string         `json:"delivery_customer_phone"`
	CustomerEmail   string         `json:"delivery_customer_email,omitempty"`
	District        string         `json:"delivery_district"`
	Area            string         `json:"delivery_area"`
	CouponCode      string         `json:"coupon_code,omitempty"`
	StoreID         string         `json:"store_id,omitempty"`
	CreatedAt       string         `json:"created_at"`
}

type OrderProduct struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
	Price     int64  `json:"price"`
	Size      string `json:"size"`
}

type orderCreateResponse struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message,omitempty"`
	InvoiceID flexString `json:"invoice_id"`
	Data      *struct {
		InvoiceID flexString `json:"invoice_id"`
	} `json:"data"`
}

func (r orderCreateResponse) invoiceID() string {
	if r.Data != nil && r.Data.InvoiceID != "" {
		return string(r.Data.InvoiceID)
	}
	return string(r.InvoiceID)
}

type trackOrderRequest struct {
	InvoiceID string `json:"invoice_id"`
	StoreID   string `json:"store_id,omitempty"`
}

type trackOrderResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Data []orderDTO `json:"data"`
	} `json:"data"`
}

type orderDTO struct {
	InvoiceID   flexString        `json:"invoice_id"`
	Status      string            `json:"status"`
	PayMode     string            `json:"pay_mode"`
	SubTotal    flexDecimal       `json:"sub_total"`
	Discount    flexDecimal       `json:"discount"`
	DeliveryFee flexDecimal       `json:"delivery_fee"`
	Total       flexDecimal       `json:"total"`
	CreatedAt   string            `json:"created_at"`
	Products    []orderProductDTO `json:"product"`
}

type orderProductDTO struct {
	ProductID   flexString  `json:"product_id"`
	ProductName string      `json:"product_name"`
	Qty         flexDecimal `json:"qty"`
	Price       flexDecimal `json:"price"`
	Size        string      `json:"size"`
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms), true
	}
	return time.Time{}, false
}

// invalidField names the first amount field that could not be parsed.
func (d couponDTO) invalidField() string {
	switch {
	case d.Amount.Invalid:
		return "amount"
	case d.AmountLimit.Invalid:
		return "amount_limit"
	case d.MinimumOrderAmount.Invalid:
		return "minimum_order_amount"
	}
	return ""
}

func (d couponDTO) toDomain(loc *time.Location) (domain.Coupon, bool) {
	amountType := domain.AmountFlat
	if strings.EqualFold(strings.TrimSpace(d.AmountType), string(domain.AmountPercentage)) {
		amountType = domain.AmountPercentage
	}
	expire, ok := parseTimestamp(d.ExpireDate, loc)
	return domain.Coupon{
		Code:               strings.TrimSpace(d.CouponCode),
		AmountType:         amountType,
		Amount:             d.Amount.Decimal,
		AmountLimit:        d.AmountLimit.Decimal,
		MinimumOrderAmount: d.MinimumOrderAmount.Decimal,
		ExpireDate:         expire,
	}, ok || strings.TrimSpace(d.ExpireDate) == ""
}

func (d orderDTO) toDomain(loc *time.Location) domain.Order {
	created, _ := parseTimestamp(d.CreatedAt, loc)
	out := domain.Order{
		InvoiceID:   string(d.InvoiceID),
		Status:      d.Status,
		PayMode:     d.PayMode,
		SubTotal:    d.SubTotal.Round(0).IntPart(),
		Discount:    d.Discount.Round(0).IntPart(),
		DeliveryFee: d.DeliveryFee.Round(0).IntPart(),
		Total:       d.Total.Round(0).IntPart(),
		CreatedAt:   created,
	}
	if out.Total == 0 {
		out.Total = out.SubTotal + out.DeliveryFee - out.Discount
	}
	for _, p := range d.Products {
		out.Lines = append(out.Lines, domain.OrderLine{
			ProductID: string(p.ProductID),
			Name:      p.ProductName,
			Quantity:  int(p.Qty.IntPart()),
			Price:     p.Price.Round(0).IntPart(),
			Size:      p.Size,
		})
	}
	return out
}
