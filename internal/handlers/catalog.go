package handlers

import (
	"log"

	"smartcoffee/internal/services/catalog"
	"smartcoffee/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type CatalogHandler struct {
	catalogService catalog.Service
}

func NewCatalogHandler(catalogSvc catalog.Service) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogSvc}
}

// ClientData returns the kiosk menu and banner.
func (h *CatalogHandler) ClientData(c *fiber.Ctx) error {
	data, err := h.catalogService.ClientData(c.UserContext())
	if err != nil {
		log.Printf("Client data failed: %v", err)
		return response.ServerError(c, "Falha ao carregar dados da máquina.")
	}
	return c.JSON(data)
}
