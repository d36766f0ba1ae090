// Package commerce talks to the external commerce backend that owns coupons
// and orders.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gadget-storefront/internal/domain"
	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// Client is a thin JSON-over-HTTP client. The tenant id is sent implicitly on
// every call.
type Client struct {
	baseURL  string
	tenantID string
	http     *http.Client
	logger   *zap.Logger
	loc      *time.Location
}

// NewClient builds a Client with a bounded request timeout.
func NewClient(baseURL, tenantID string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		tenantID: tenantID,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
		loc:      time.Local,
	}
}

// ListCoupons fetches the full coupon catalog.
func (c *Client) ListCoupons(ctx context.Context) ([]domain.Coupon, error) {
	var resp couponListResponse
	if err := c.do(ctx, http.MethodGet, "/coupons/"+url.PathEscape(c.tenantID), nil, &resp); err != nil {
		return nil, errors.Wrap(err, "list coupons")
	}
	if !resp.Success {
		return nil, errors.Wrap(domain.ErrBackendUnsuccessful, "list coupons")
	}
	coupons := make([]domain.Coupon, 0, len(resp.Data))
	for _, dto := range resp.Data {
		if field := dto.invalidField(); field != "" {
			c.logger.Warn("coupon amount unparsable, skipping",
				zap.String("code", dto.CouponCode),
				zap.String("field", field),
			)
			continue
		}
		coupon, ok := dto.toDomain(c.loc)
		if !ok {
			c.logger.Warn("coupon expire_date unparsable, treating as open-ended",
				zap.String("code", dto.CouponCode),
				zap.String("expire_date", dto.ExpireDate),
			)
		}
		coupons = append(coupons, coupon)
	}
	return coupons, nil
}

// TrackCouponUsage tells the backend a coupon is being redeemed.
func (c *Client) TrackCouponUsage(ctx context.Context, code string) error {
	var resp successResponse
	if err := c.do(ctx, http.MethodPost, "/coupons/use", couponUsageRequest{Code: code, StoreID: c.tenantID}, &resp); err != nil {
		return errors.Wrap(err, "track coupon usage")
	}
	if !resp.Success {
		return errors.Wrapf(domain.ErrBackendUnsuccessful, "track coupon usage: %s", resp.Message)
	}
	return nil
}

// OrderResult is what the backend returns for a created order. InvoiceID may
// be empty even on success.
type OrderResult struct {
	InvoiceID string
}

// CreateOrder submits an order.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (OrderResult, error) {
	if req.StoreID == "" {
		req.StoreID = c.tenantID
	}
	var resp orderCreateResponse
	if err := c.do(ctx, http.MethodPost, "/orders", req, &resp); err != nil {
		return OrderResult{}, errors.Wrap(err, "create order")
	}
	if !resp.Success {
		return OrderResult{}, errors.Wrapf(domain.ErrBackendUnsuccessful, "create order: %s", resp.Message)
	}
	return OrderResult{InvoiceID: resp.invoiceID()}, nil
}

// TrackOrder looks up orders by invoice id. domain.ErrNotFound is returned
// when the backend knows no such invoice.
func (c *Client) TrackOrder(ctx context.Context, invoiceID string) ([]domain.Order, error) {
	var resp trackOrderResponse
	if err := c.do(ctx, http.MethodPost, "/orders/track", trackOrderRequest{InvoiceID: invoiceID, StoreID: c.tenantID}, &resp); err != nil {
		return nil, errors.Wrap(err, "track order")
	}
	if !resp.Success {
		return nil, errors.Wrap(domain.ErrBackendUnsuccessful, "track order")
	}
	if len(resp.Data.Data) == 0 {
		return nil, domain.ErrNotFound
	}
	orders := make([]domain.Order, 0, len(resp.Data.Data))
	for _, dto := range resp.Data.Data {
		orders = append(orders, dto.toDomain(c.loc))
	}
	return orders, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tenantID != "" {
		req.Header.Set("X-Tenant-ID", c.tenantID)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("commerce request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug("commerce request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Wrapf(domain.ErrBackendUnsuccessful, "%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}
