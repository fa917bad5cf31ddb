// Package main is the entry point for the kiosk backend.
// It loads configuration, opens the stores, starts the sale sweeper
// and serves the HTTP API together with the kiosk and admin pages.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"smartcoffee/internal/config"
	"smartcoffee/internal/repositories"
	"smartcoffee/internal/repositories/cache"
	"smartcoffee/internal/routes"
	"smartcoffee/internal/services/gateway"
	"smartcoffee/internal/services/sale"
)

const cacheTTL = 10 * time.Minute

func main() {
	config.LoadEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := repositories.Open(cfg.DatabaseURL, repositories.DBConfig{
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}
	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("✅ Successfully connected to database with connection pooling")

	if err := repositories.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	if err := repositories.Seed(db); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis is optional; without it every cache read misses.
	var cacheService *cache.CacheService
	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to configure redis: %v", err)
		}
		cacheService = cache.NewCacheService(client, cacheTTL)
		if err := cacheService.HealthCheck(ctx); err != nil {
			log.Printf("⚠️ Redis unavailable, continuing without cache: %v", err)
			_ = cacheService.Close()
			cacheService = nil
		} else {
			log.Println("✅ Connected to redis")
		}
	} else {
		log.Println("ℹ️ REDIS_URL not set, cache disabled")
	}

	defer func() {
		if err := sqlDB.Close(); err != nil {
			log.Printf("⚠️ Failed to close database connection: %v", err)
		}
		if cacheService != nil {
			if err := cacheService.Close(); err != nil {
				log.Printf("⚠️ Failed to close Redis connection: %v", err)
			}
		}
	}()

	// Periodic check of connection pool stats
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := sqlDB.Stats()
				log.Printf("DB Stats: Open=%d, Idle=%d, InUse=%d, WaitCount=%d, WaitDuration=%s",
					stats.OpenConnections, stats.Idle, stats.InUse, stats.WaitCount, stats.WaitDuration)
			}
		}
	}()

	deps := routes.Deps{
		Config:  cfg,
		DB:      db,
		Cache:   cacheService,
		Gateway: gateway.NewMercadoPago(cfg.MercadoPagoAccessToken, gateway.WithBaseURL(cfg.MercadoPagoBaseURL)),
	}
	svcs, err := routes.NewServices(deps)
	if err != nil {
		log.Fatalf("Failed to build services: %v", err)
	}

	go sale.RunSweeper(ctx, svcs.Sale, cfg.SweepInterval)

	app := routes.NewApp(deps, svcs)

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("⚠️ Shutdown error: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
