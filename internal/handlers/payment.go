package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"strings"

	"smartcoffee/internal/models"
	"smartcoffee/internal/services/gateway"
	"smartcoffee/internal/services/sale"
	"smartcoffee/internal/utils/response"
	"smartcoffee/internal/validation"

	"github.com/gofiber/fiber/v2"
	validatorv10 "github.com/go-playground/validator/v10"
)

// IdempotencyKeyHeader lets the kiosk retry a purchase without a second charge.
const IdempotencyKeyHeader = "Idempotency-Key"

const maxIdempotencyKeyLen = 64

type PaymentHandler struct {
	saleService   sale.Service
	validate      *validatorv10.Validate
	webhookSecret string
}

// NewPaymentHandler wires the kiosk payment endpoints. An empty webhookSecret
// disables notification signature checks.
func NewPaymentHandler(saleSvc sale.Service, validate *validatorv10.Validate, webhookSecret string) *PaymentHandler {
	return &PaymentHandler{
		saleService:   saleSvc,
		validate:      validate,
		webhookSecret: webhookSecret,
	}
}

// CreatePayment opens a PIX charge for the selected dosage.
func (h *PaymentHandler) CreatePayment(c *fiber.Ctx) error {
	var req models.CreatePaymentRequest
	if handled, err := validation.BindAndValidate(c, &req, h.validate); handled {
		return err
	}

	key := strings.TrimSpace(c.Get(IdempotencyKeyHeader))
	if key == "" {
		key = strings.TrimSpace(req.IdempotencyKey)
	}
	if len(key) > maxIdempotencyKeyLen {
		return response.BadRequest(c, "Chave de idempotência muito longa.")
	}

	resp, err := h.saleService.CreatePayment(c.UserContext(), req.DosageID, key)
	if err != nil {
		return h.createPaymentError(c, err)
	}
	return c.JSON(resp)
}

func (h *PaymentHandler) createPaymentError(c *fiber.Ctx, err error) error {
	var createErr *sale.CreateError
	switch {
	case errors.Is(err, sale.ErrDosageNotFound):
		return response.NotFound(c, "Dosagem não encontrada.")
	case errors.Is(err, sale.ErrPaymentInProgress):
		return response.Conflict(c, "Pagamento em processamento. Tente novamente em instantes.")
	case errors.Is(err, sale.ErrIdempotencyKeyReused):
		return response.Unprocessable(c, "Chave de idempotência já usada para outra dosagem.")
	case errors.Is(err, gateway.ErrMalformed):
		return response.ServerError(c, "Falha na comunicação com o MP. Não foram recebidos os dados do PIX.")
	case errors.As(err, &createErr):
		if createErr.Message != "" {
			return response.ServerError(c, createErr.Message)
		}
		return response.ServerError(c, "Falha ao criar pagamento no Mercado Pago.")
	}

	log.Printf("Create payment failed: %v", err)
	return response.ServerError(c, "Falha ao criar pagamento.")
}

// PaymentStatus reports the local sale status. Unknown ids are pending.
func (h *PaymentHandler) PaymentStatus(c *fiber.Ctx) error {
	chargeID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.JSON(models.PaymentStatusResponse{Status: models.SaleStatusPending})
	}

	status, err := h.saleService.GetPaymentStatus(c.UserContext(), chargeID)
	if err != nil {
		log.Printf("Payment status lookup failed for %d: %v", chargeID, err)
		return response.ServerError(c, "Falha ao buscar status.")
	}
	return c.JSON(models.PaymentStatusResponse{Status: status})
}

type notificationBody struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
	Data  struct {
		ID json.RawMessage `json:"id"`
	} `json:"data"`
}

// PaymentNotification receives processor pushes. It always answers 200 so
// the processor does not retry on our own faults.
func (h *PaymentHandler) PaymentNotification(c *fiber.Ctx) error {
	n := parseNotification(c)

	if h.webhookSecret != "" {
		err := gateway.VerifyNotificationSignature(
			c.Get(gateway.SignatureHeader),
			c.Get(gateway.RequestIDHeader),
			n.ID,
			h.webhookSecret,
		)
		if err != nil {
			log.Printf("Webhook rejected (topic=%s id=%s): %v", n.Topic, n.ID, err)
			return c.SendStatus(fiber.StatusOK)
		}
	}

	if err := h.saleService.HandleWebhook(c.UserContext(), n); err != nil {
		log.Printf("Webhook error (topic=%s id=%s): %v", n.Topic, n.ID, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

// parseNotification accepts ?topic=&id=, ?type=&data.id= and a JSON body.
func parseNotification(c *fiber.Ctx) sale.Notification {
	n := sale.Notification{Topic: c.Query("topic"), ID: c.Query("id")}
	if n.Topic == "" {
		n.Topic = c.Query("type")
	}
	if n.ID == "" {
		n.ID = c.Query("data.id")
	}
	if n.Topic != "" && n.ID != "" {
		return n
	}

	var body notificationBody
	if len(c.Body()) == 0 || json.Unmarshal(c.Body(), &body) != nil {
		return n
	}
	if n.Topic == "" {
		n.Topic = body.Type
		if n.Topic == "" {
			n.Topic = body.Topic
		}
	}
	if n.ID == "" {
		n.ID = strings.Trim(string(body.Data.ID), `"`)
	}
	return n
}
