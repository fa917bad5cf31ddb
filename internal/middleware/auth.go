// Package middleware provides HTTP middleware components for the application.
package middleware

import (
	"log"
	"strings"

	"smartcoffee/internal/services/auth"
	"smartcoffee/internal/utils"
	"smartcoffee/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware validates admin bearer tokens.
type AuthMiddleware struct {
	authService auth.Service
}

func NewAuthMiddleware(authService auth.Service) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
	}
}

// Handler rejects a request without a bearer Authorization header with 401
// and any token that fails to verify with 403. Verified claims are stored in Locals.
func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	tokenString, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return response.Unauthorized(c, "Token de acesso ausente.")
	}

	claims, err := m.authService.ParseToken(tokenString)
	if err != nil {
		log.Printf("Token validation error: %v", err)
		return response.Forbidden(c, "Token inválido ou expirado.")
	}

	c.Locals(utils.ClaimsLocalKey, claims)
	return c.Next()
}

// bearerToken extracts the token of a "Bearer <token>" header. The scheme is
// matched case-insensitively.
func bearerToken(header string) (string, bool) {
	const scheme = "Bearer "
	if len(header) <= len(scheme) || !strings.EqualFold(header[:len(scheme)], scheme) {
		return "", false
	}
	token := strings.TrimSpace(header[len(scheme):])
	return token, token != ""
}

// AdminAuthMiddleware verifies that the request carries admin claims.
func AdminAuthMiddleware(c *fiber.Ctx) error {
	claims, err := utils.GetAdminClaims(c)
	if err != nil {
		return response.Unauthorized(c, "Token de acesso ausente.")
	}
	if !claims.IsAdmin() {
		log.Printf("Access denied: role %q is not admin", claims.Role)
		return response.Forbidden(c, "Permissão insuficiente.")
	}
	return c.Next()
}
