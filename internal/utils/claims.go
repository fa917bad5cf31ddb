package utils

import (
	"errors"

	"smartcoffee/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ClaimsLocalKey is where the auth middleware stores verified claims.
const ClaimsLocalKey = "claims"

// GetAdminClaims extracts the admin claims from the Fiber context.
func GetAdminClaims(c *fiber.Ctx) (*models.AdminClaims, error) {
	v := c.Locals(ClaimsLocalKey)
	if v == nil {
		return nil, errors.New("claims not found in context")
	}

	claims, ok := v.(*models.AdminClaims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}
	return claims, nil
}
