package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gadget-storefront/internal/cart"
	"gadget-storefront/internal/checkout"
	"gadget-storefront/internal/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var quantityTooLarge = fmt.Sprintf("quantity must be at most %d", cart.MaxQuantity)

type handlers struct {
	deps   Deps
	logger *zap.Logger
}

func (h *handlers) issueDevice(c *gin.Context) {
	sess, err := h.deps.Devices.Issue(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, deviceResponse{
		DeviceID:  sess.DeviceID,
		Token:     sess.Token,
		TokenType: "Bearer",
		ExpiresIn: h.deps.Devices.TTLSeconds(),
	})
}

func (h *handlers) getCart(c *gin.Context) {
	store := h.deps.Carts.Get(c.Request.Context(), deviceFrom(c))
	c.JSON(http.StatusOK, toCartResponse(store.Snapshot()))
}

func (h *handlers) addCartItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if strings.TrimSpace(req.ProductID) == "" {
		badRequest(c, "productId required")
		return
	}
	if req.Quantity > cart.MaxQuantity {
		badRequest(c, quantityTooLarge)
		return
	}
	ctx := c.Request.Context()
	store := h.deps.Carts.Get(ctx, deviceFrom(c))
	snap := store.AddItem(ctx, domain.Product{
		ID:       strings.TrimSpace(req.ProductID),
		Name:     req.Name,
		Price:    req.Price,
		ImageURL: req.ImageURL,
	}, req.Quantity, req.Variants)
	c.JSON(http.StatusOK, toCartResponse(snap))
}

func (h *handlers) updateCartItem(c *gin.Context) {
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if strings.TrimSpace(req.ProductID) == "" {
		badRequest(c, "productId required")
		return
	}
	if req.Quantity > cart.MaxQuantity {
		badRequest(c, quantityTooLarge)
		return
	}
	ctx := c.Request.Context()
	store := h.deps.Carts.Get(ctx, deviceFrom(c))
	snap := store.UpdateQuantity(ctx, req.ProductID, variantKeyOrDefault(req.VariantKey), req.Quantity)
	c.JSON(http.StatusOK, toCartResponse(snap))
}

func (h *handlers) removeCartItem(c *gin.Context) {
	productID := strings.TrimSpace(c.Query("productId"))
	if productID == "" {
		badRequest(c, "productId required")
		return
	}
	ctx := c.Request.Context()
	store := h.deps.Carts.Get(ctx, deviceFrom(c))
	snap := store.RemoveItem(ctx, productID, variantKeyOrDefault(c.Query("variantKey")))
	c.JSON(http.StatusOK, toCartResponse(snap))
}

func (h *handlers) clearCart(c *gin.Context) {
	ctx := c.Request.Context()
	snap := h.deps.Carts.Get(ctx, deviceFrom(c)).Clear(ctx)
	c.JSON(http.StatusOK, toCartResponse(snap))
}

func (h *handlers) getCheckout(c *gin.Context) {
	view := h.deps.Checkout.Draft(c.Request.Context(), deviceFrom(c))
	c.JSON(http.StatusOK, checkoutResponse{Checkout: view})
}

func (h *handlers) selectAddress(c *gin.Context) {
	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	view := h.deps.Checkout.SelectAddress(c.Request.Context(), deviceFrom(c), req.District, req.Area)
	c.JSON(http.StatusOK, checkoutResponse{Checkout: view})
}

func (h *handlers) applyCoupon(c *gin.Context) {
	var req couponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	view, msg, err := h.deps.Checkout.ApplyCoupon(c.Request.Context(), deviceFrom(c), req.Code)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, checkoutResponse{Checkout: view, Message: msg})
}

func (h *handlers) removeCoupon(c *gin.Context) {
	view := h.deps.Checkout.RemoveCoupon(c.Request.Context(), deviceFrom(c))
	c.JSON(http.StatusOK, checkoutResponse{Checkout: view})
}

func (h *handlers) submitOrder(c *gin.Context) {
	var form checkout.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	conf, err := h.deps.Checkout.Submit(c.Request.Context(), deviceFrom(c), form)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, conf)
}

func (h *handlers) trackOrder(c *gin.Context) {
	invoiceID := strings.TrimSpace(c.Param("invoiceId"))
	if invoiceID == "" {
		badRequest(c, "invoiceId required")
		return
	}
	orders, err := h.deps.Orders.TrackOrder(c.Request.Context(), invoiceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Order not found"})
			return
		}
		h.logger.Error("track order failed", zap.String("invoice", invoiceID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"message": "Unable to track order"})
		return
	}
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	c.JSON(http.StatusOK, gin.H{"orders": out})
}

func variantKeyOrDefault(key string) string {
	if strings.TrimSpace(key) == "" {
		return domain.DefaultVariantKey
	}
	return key
}
