// Package routes defines the API routing configuration.
// It builds the services from their dependencies and mounts every endpoint.
package routes

import (
	"time"

	"smartcoffee/internal/config"
	"smartcoffee/internal/handlers"
	"smartcoffee/internal/middleware"
	"smartcoffee/internal/repositories"
	"smartcoffee/internal/repositories/cache"
	"smartcoffee/internal/services/auth"
	"smartcoffee/internal/services/catalog"
	"smartcoffee/internal/services/dashboard"
	"smartcoffee/internal/services/gateway"
	"smartcoffee/internal/services/sale"
	"smartcoffee/internal/validation"
	"smartcoffee/web"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

// Deps is everything the server shares across requests. It is built once in
// main; tests pass a sqlite store, a nil cache and a fake gateway.
type Deps struct {
	Config  *config.Config
	DB      *gorm.DB
	Cache   *cache.CacheService
	Gateway gateway.Gateway
}

// Services groups the domain services built from Deps.
type Services struct {
	Auth      auth.Service
	Sale      sale.Service
	Catalog   catalog.Service
	Dashboard dashboard.Service
}

func NewServices(d Deps) (*Services, error) {
	authService, err := auth.NewService(d.Config.AdminPasswordHash, d.Config.AdminPassword, d.Config.JWTSecret)
	if err != nil {
		return nil, err
	}

	dosageRepo := repositories.NewDosageRepository(d.DB)
	saleRepo := repositories.NewSaleRepository(d.DB)
	configRepo := repositories.NewConfigRepository(d.DB)
	inventoryRepo := repositories.NewInventoryRepository(d.DB)
	costRepo := repositories.NewCostRepository(d.DB)

	return &Services{
		Auth: authService,
		Sale: sale.NewService(dosageRepo, saleRepo, d.Gateway, d.Cache, sale.Config{
			NotificationURL:  d.Config.NotificationURL,
			PayerEmailDomain: d.Config.PayerEmailDomain,
			ChargeExpiration: d.Config.ChargeExpiration,
			SweepMinAge:      d.Config.SweepMinAge,
		}),
		Catalog:   catalog.NewService(dosageRepo, configRepo, inventoryRepo, costRepo, d.Cache),
		Dashboard: dashboard.NewService(configRepo, dosageRepo, inventoryRepo, costRepo, saleRepo),
	}, nil
}

// NewApp returns the configured fiber app with every route mounted.
func NewApp(d Deps, svcs *Services) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "SmartCoffee",
	})

	app.Use(recover.New())

	app.Use(cors.New(cors.Config{
		AllowOrigins: d.Config.CORSAllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + handlers.IdempotencyKeyHeader,
		AllowMethods: "GET,POST,HEAD,OPTIONS",
	}))

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Use("/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Muitas tentativas. Tente novamente em instantes.",
			})
		},
	}))

	SetupRoutes(app, d, svcs)
	return app
}

// SetupRoutes configures all application routes.
func SetupRoutes(app *fiber.App, d Deps, svcs *Services) {
	validate := validation.New()

	paymentHandler := handlers.NewPaymentHandler(svcs.Sale, validate, d.Config.MercadoPagoWebhookSecret)
	catalogHandler := handlers.NewCatalogHandler(svcs.Catalog)
	authHandler := handlers.NewAuthHandler(svcs.Auth, validate)
	adminHandler := handlers.NewAdminHandler(svcs.Catalog, svcs.Dashboard, validate)
	healthHandler := handlers.NewHealthHandler(d.DB, d.Cache)

	authMiddleware := middleware.NewAuthMiddleware(svcs.Auth)

	// Public routes
	app.Get("/health", healthHandler.HealthCheck)
	app.Get("/client-data", catalogHandler.ClientData)
	app.Post("/create-payment", paymentHandler.CreatePayment)
	app.Get("/payment-status/:id", paymentHandler.PaymentStatus)
	app.Post("/payment-notification", paymentHandler.PaymentNotification)
	app.Post("/login", authHandler.Login)

	setupAdminRoutes(app, authMiddleware, adminHandler, healthHandler)

	// Kiosk and admin single-page apps
	app.Use("/", filesystem.New(filesystem.Config{
		Root:   web.FS(),
		Index:  "index.html",
		MaxAge: 300,
	}))
}

// setupAdminRoutes guards each admin route individually; a group-level Use on
// /admin would also catch the /admin.html page.
func setupAdminRoutes(app *fiber.App, authMiddleware *middleware.AuthMiddleware, h *handlers.AdminHandler, health *handlers.HealthHandler) {
	admin := app.Group("/admin")
	guard := func(handler fiber.Handler) []fiber.Handler {
		return []fiber.Handler{authMiddleware.Handler, middleware.AdminAuthMiddleware, handler}
	}

	admin.Get("/dashboard", guard(h.Dashboard)...)
	admin.Post("/config", guard(h.SaveConfig)...)
	admin.Post("/dosages", guard(h.SaveDosages)...)
	admin.Post("/inventory", guard(h.Refill)...)
	admin.Post("/costs", guard(h.AddCost)...)
	admin.Post("/costs/clear", guard(h.ClearCosts)...)
	admin.Get("/cache-stats", guard(health.CacheStats)...)
}
