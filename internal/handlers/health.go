package handlers

import (
	"smartcoffee/internal/repositories/cache"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db    *gorm.DB
	cache *cache.CacheService
}

func NewHealthHandler(db *gorm.DB, cacheSvc *cache.CacheService) *HealthHandler {
	return &HealthHandler{db: db, cache: cacheSvc}
}

func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	status, code := "ok", fiber.StatusOK
	database, redisState := "connected", "connected"

	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(c.UserContext()) != nil {
		database = "unreachable"
		status, code = "degraded", fiber.StatusServiceUnavailable
	}
	if h.cache == nil {
		redisState = "disabled"
	} else if err := h.cache.HealthCheck(c.UserContext()); err != nil {
		redisState = "unreachable"
		status = "degraded"
	}

	return c.Status(code).JSON(fiber.Map{
		"status":   status,
		"database": database,
		"redis":    redisState,
	})
}

// CacheStats exposes redis pool counters to admins.
func (h *HealthHandler) CacheStats(c *fiber.Ctx) error {
	poolStats := h.cache.GetStats(c.UserContext())

	return c.JSON(fiber.Map{
		"pool_stats": fiber.Map{
			"hits":        poolStats.Hits,
			"misses":      poolStats.Misses,
			"timeouts":    poolStats.Timeouts,
			"total_conns": poolStats.TotalConns,
			"idle_conns":  poolStats.IdleConns,
			"stale_conns": poolStats.StaleConns,
		},
	})
}
