package handlers

import (
	"errors"

	"smartcoffee/internal/models"
	"smartcoffee/internal/services/auth"
	"smartcoffee/internal/utils/response"
	"smartcoffee/internal/validation"

	"github.com/gofiber/fiber/v2"
	validatorv10 "github.com/go-playground/validator/v10"
)

type AuthHandler struct {
	authService auth.Service
	validate    *validatorv10.Validate
}

func NewAuthHandler(authService auth.Service, validate *validatorv10.Validate) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validate,
	}
}

// Login exchanges the admin password for a bearer token.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if handled, err := validation.BindAndValidate(c, &req, h.validate); handled {
		return err
	}

	token, err := h.authService.Login(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return response.Unauthorized(c, "Senha inválida.")
		}
		return response.ServerError(c, "Falha ao gerar token.")
	}
	return c.JSON(fiber.Map{"token": token})
}
