package models

import "github.com/shopspring/decimal"

// CreatePaymentRequest is the body of POST /create-payment.
type CreatePaymentRequest struct {
	DosageID       uint   `json:"dosageId" validate:"required,gt=0"`
	IdempotencyKey string `json:"idempotencyKey" validate:"omitempty,max=64"`
}

// PixPayload is the QR payload rendered by the kiosk.
type PixPayload struct {
	QRCode       string `json:"qr_code"`
	QRCodeBase64 string `json:"qr_code_base64"`
}

// CreatePaymentResponse is the reply of POST /create-payment.
type CreatePaymentResponse struct {
	PaymentID int64      `json:"paymentId"`
	Pix       PixPayload `json:"pix"`
}

// PaymentStatusResponse is the reply of GET /payment-status/:id.
type PaymentStatusResponse struct {
	Status string `json:"status"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// ConfigUpdateRequest is the body of POST /admin/config.
type ConfigUpdateRequest struct {
	BannerURL      string `json:"bannerUrl" validate:"omitempty,url"`
	WaterCapacity  int    `json:"waterCapacity" validate:"gte=0"`
	CoffeeCapacity int    `json:"coffeeCapacity" validate:"gte=0"`
}

// DosagesUpdateRequest is the body of POST /admin/dosages.
type DosagesUpdateRequest struct {
	Dosages []Dosage `json:"dosages" validate:"required,dive"`
}

// InventoryUpdateRequest is the body of POST /admin/inventory.
type InventoryUpdateRequest struct {
	WaterML     decimal.Decimal `json:"water_ml" validate:"gte=0"`
	CoffeeGrams decimal.Decimal `json:"coffee_grams" validate:"gte=0"`
}

// CostRequest is the body of POST /admin/costs.
type CostRequest struct {
	Name  string          `json:"name" validate:"required,max=255"`
	Value decimal.Decimal `json:"value" validate:"gte=0"`
}
