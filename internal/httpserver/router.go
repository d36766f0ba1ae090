package httpserver

import (
	"context"
	"errors"
	"time"

	"gadget-storefront/internal/cart"
	"gadget-storefront/internal/checkout"
	"gadget-storefront/internal/device"
	"gadget-storefront/internal/domain"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type deviceService interface {
	Issue(ctx context.Context) (device.Session, error)
	Lookup(ctx context.Context, token string) (string, error)
	TTLSeconds() int
}

type cartRegistry interface {
	Get(ctx context.Context, deviceID string) *cart.Store
}

type checkoutService interface {
	Draft(ctx context.Context, deviceID string) checkout.View
	SelectAddress(ctx context.Context, deviceID, district, area string) checkout.View
	ApplyCoupon(ctx context.Context, deviceID, code string) (checkout.View, string, error)
	RemoveCoupon(ctx context.Context, deviceID string) checkout.View
	Submit(ctx context.Context, deviceID string, form checkout.Form) (checkout.Confirmation, error)
}

type orderTracker interface {
	TrackOrder(ctx context.Context, invoiceID string) ([]domain.Order, error)
}

// Deps are the services the routes call into.
type Deps struct {
	Devices  deviceService
	Carts    cartRegistry
	Checkout checkoutService
	Orders   orderTracker
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, db *pgxpool.Pool, deps Deps, corsOrigins []string) (*gin.Engine, error) {
	if deps.Devices == nil || deps.Carts == nil || deps.Checkout == nil || deps.Orders == nil {
		return nil, errors.New("httpserver: missing dependency")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(requestLogger(logger), gin.Recovery())
	if len(corsOrigins) > 0 {
		router.Use(cors.New(corsConfig(corsOrigins)))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &handlers{deps: deps, logger: logger}

	api := router.Group("/api/v1")
	api.POST("/devices", h.issueDevice)

	authed := api.Group("")
	authed.Use(deviceMiddleware(deps.Devices, logger))

	authed.GET("/cart", h.getCart)
	authed.POST("/cart/items", h.addCartItem)
	authed.PATCH("/cart/items", h.updateCartItem)
	authed.DELETE("/cart/items", h.removeCartItem)
	authed.DELETE("/cart", h.clearCart)

	authed.GET("/checkout", h.getCheckout)
	authed.PUT("/checkout/address", h.selectAddress)
	authed.POST("/checkout/coupon", h.applyCoupon)
	authed.DELETE("/checkout/coupon", h.removeCoupon)
	authed.POST("/checkout/orders", h.submitOrder)

	authed.GET("/orders/:invoiceId", h.trackOrder)

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}
