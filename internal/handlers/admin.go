package handlers

import (
	"log"

	"smartcoffee/internal/models"
	"smartcoffee/internal/services/catalog"
	"smartcoffee/internal/services/dashboard"
	"smartcoffee/internal/utils/response"
	"smartcoffee/internal/validation"

	"github.com/gofiber/fiber/v2"
	validatorv10 "github.com/go-playground/validator/v10"
)

// AdminHandler serves the bearer-protected admin panel API.
type AdminHandler struct {
	catalogService   catalog.Service
	dashboardService dashboard.Service
	validate         *validatorv10.Validate
}

func NewAdminHandler(catalogSvc catalog.Service, dashboardSvc dashboard.Service, validate *validatorv10.Validate) *AdminHandler {
	return &AdminHandler{
		catalogService:   catalogSvc,
		dashboardService: dashboardSvc,
		validate:         validate,
	}
}

func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	snapshot, err := h.dashboardService.Snapshot(c.UserContext())
	if err != nil {
		log.Printf("Dashboard failed: %v", err)
		return response.ServerError(c, "Falha ao carregar dados do admin.")
	}
	return c.JSON(snapshot)
}

func (h *AdminHandler) SaveConfig(c *fiber.Ctx) error {
	var req models.ConfigUpdateRequest
	if handled, err := validation.BindAndValidate(c, &req, h.validate); handled {
		return err
	}
	if err := h.catalogService.SaveConfig(c.UserContext(), req); err != nil {
		log.Printf("Save config failed: %v", err)
		return response.ServerError(c, "Falha ao salvar configurações.")
	}
	return response.Message(c, "Configurações salvas!")
}

func (h *AdminHandler) SaveDosages(c *fiber.Ctx) error {
	var req models.DosagesUpdateRequest
	if handled, err := validation.BindAndValidate(c, &req, h.validate); handled {
		return err
	}
	if err := h.catalogService.SaveDosages(c.UserContext(), req.Dosages); err != nil {
		log.Printf("Save dosages failed: %v", err)
		return response.ServerError(c, "Falha ao salvar dosagens.")
	}
	return response.Message(c, "Dosagens salvas!")
}

func (h *AdminHandler) Refill(c *fiber.Ctx) error {
	var req models.InventoryUpdateRequest
	if handled, err := validation.BindAndValidate(c, &req, h.validate); handled {
		return err
	}
	if err := h.catalogService.Refill(c.UserContext(), req); err != nil {
		log.Printf("Refill failed: %v", err)
		return response.ServerError(c, "Falha ao abastecer inventário.")
	}
	return response.Message(c, "Inventário abastecido!")
}

func (h *AdminHandler) AddCost(c *fiber.Ctx) error {
	var req models.CostRequest
	if handled, err := validation.BindAndValidate(c, &req, h.validate); handled {
		return err
	}
	if _, err := h.catalogService.AddCost(c.UserContext(), req); err != nil {
		log.Printf("Add cost failed: %v", err)
		return response.ServerError(c, "Falha ao adicionar custo.")
	}
	return response.Message(c, "Custo adicionado!")
}

func (h *AdminHandler) ClearCosts(c *fiber.Ctx) error {
	if err := h.catalogService.ClearCosts(c.UserContext()); err != nil {
		log.Printf("Clear costs failed: %v", err)
		return response.ServerError(c, "Falha ao zerar custos.")
	}
	return response.Message(c, "Custos zerados!")
}
