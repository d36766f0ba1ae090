package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gadget-storefront/internal/cart"
	"gadget-storefront/internal/checkout"
	"gadget-storefront/internal/commerce"
	"gadget-storefront/internal/config"
	"gadget-storefront/internal/coupon"
	"gadget-storefront/internal/db"
	"gadget-storefront/internal/device"
	"gadget-storefront/internal/httpserver"
	"gadget-storefront/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfg := config.FromEnv()
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.Named("api")

	ctx := context.Background()

	var (
		dbpool *pgxpool.Pool
		bridge storage.Bridge
	)
	switch cfg.StorageBackend {
	case config.StorageMemory:
		logger.Warn("using in-memory storage, carts are lost on restart")
		bridge = storage.NewMemory()
	case config.StoragePostgres:
		dbpool, err = db.Connect(ctx, cfg.DBConnString, logger)
		if err != nil {
			logger.Fatal("connect to db", zap.Error(err))
		}
		defer dbpool.Close()
		bridge = storage.NewPostgres(dbpool, logger)
	default:
		logger.Fatal("unknown storage backend", zap.String("backend", cfg.StorageBackend))
	}

	if cfg.CommerceTenantID == "" {
		logger.Warn("COMMERCE_TENANT_ID is empty, coupon lookups will fail")
	}
	backend := commerce.NewClient(cfg.CommerceAPIURL, cfg.CommerceTenantID, cfg.CommerceTimeout, logger)

	devices := device.New(bridge, cfg.DeviceTokenTTL, logger)
	carts := cart.NewRegistry(bridge, logger)
	coupons := coupon.NewService(backend, logger)
	checkouts := checkout.NewService(carts, coupons, backend, bridge, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Devices:  devices,
		Carts:    carts,
		Checkout: checkouts,
		Orders:   backend,
	}, cfg.CORSOrigins)
	if err != nil {
		logger.Fatal("init server", zap.Error(err))
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweepIdle(sweepCtx, cfg.SessionIdleTimeout, carts, checkouts, logger)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}

	stopSweep()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("server stopped")
	}
}

// sweepIdle releases carts and checkout drafts nobody has touched within
// idle. Released carts rehydrate from storage on their next request. A
// non-positive idle disables the sweep.
func sweepIdle(ctx context.Context, idle time.Duration, carts *cart.Registry, checkouts *checkout.Service, logger *zap.Logger) {
	if idle <= 0 {
		return
	}
	ticker := time.NewTicker(max(idle/4, time.Minute))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions := checkouts.EvictIdle(idle)
			stores := carts.EvictIdle(idle)
			if sessions > 0 || stores > 0 {
				logger.Debug("released idle devices",
					zap.Int("checkout_sessions", sessions),
					zap.Int("carts", stores),
					zap.Int("carts_in_memory", carts.Len()),
				)
			}
		}
	}
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
