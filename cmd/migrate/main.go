package main

import (
	"context"

	"gadget-storefront/internal/config"
	"gadget-storefront/internal/db"
	"gadget-storefront/internal/migrate"
	"go.uber.org/zap"
)

func main() {
	cfg := config.FromEnv()
	base, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = base.Sync() }()
	logger := base.Named("migrate")

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		logger.Fatal("apply migrations", zap.Error(err))
	}

	version, dirty, err := migrate.Version(ctx, pool)
	if err != nil {
		logger.Fatal("read migration version", zap.Error(err))
	}
	logger.Info("migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
}
