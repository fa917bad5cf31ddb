package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultBaseURL = "https://api.mercadopago.com"
	defaultTimeout = 5 * time.Second
	expirationFmt  = "2006-01-02T15:04:05.000Z07:00"
)

// MercadoPago is the Gateway for the Mercado Pago payments API. It holds a
// single long-lived access token.
type MercadoPago struct {
	baseURL     string
	accessToken string
	timeout     time.Duration
}

type Option func(*MercadoPago)

// WithBaseURL points the client at another API host (tests, sandboxes).
func WithBaseURL(baseURL string) Option {
	return func(m *MercadoPago) { m.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(m *MercadoPago) { m.timeout = d }
}

func NewMercadoPago(accessToken string, opts ...Option) *MercadoPago {
	m := &MercadoPago{
		baseURL:     defaultBaseURL,
		accessToken: accessToken,
		timeout:     defaultTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type paymentRequest struct {
	TransactionAmount json.Number `json:"transaction_amount"`
	Description       string      `json:"description"`
	PaymentMethodID   string      `json:"payment_method_id"`
	ExternalReference string      `json:"external_reference"`
	NotificationURL   string      `json:"notification_url,omitempty"`
	DateOfExpiration  string      `json:"date_of_expiration,omitempty"`
	Payer             payer       `json:"payer"`
}

type payer struct {
	Email          string         `json:"email"`
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	Identification identification `json:"identification"`
}

type identification struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

type paymentResponse struct {
	ID                 int64  `json:"id"`
	Status             string `json:"status"`
	StatusDetail       string `json:"status_detail"`
	ExternalReference  string `json:"external_reference"`
	PointOfInteraction *struct {
		TransactionData *struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

func (p paymentResponse) toCharge() *Charge {
	c := &Charge{
		ID:                p.ID,
		Status:            p.Status,
		StatusDetail:      p.StatusDetail,
		ExternalReference: p.ExternalReference,
	}
	if p.PointOfInteraction != nil && p.PointOfInteraction.TransactionData != nil {
		c.QRCode = p.PointOfInteraction.TransactionData.QRCode
		c.QRCodeBase64 = p.PointOfInteraction.TransactionData.QRCodeBase64
	}
	return c
}

type searchResponse struct {
	Results []paymentResponse `json:"results"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Cause   []struct {
		Description string `json:"description"`
	} `json:"cause"`
}

// CreateCharge requests a PIX charge. The idempotency key is forwarded so a
// retried call with the same key yields the same charge.
func (m *MercadoPago) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	body := paymentRequest{
		TransactionAmount: json.Number(req.Amount.StringFixed(2)),
		Description:       req.Description,
		PaymentMethodID:   "pix",
		ExternalReference: req.ExternalReference,
		NotificationURL:   req.NotificationURL,
		Payer: payer{
			Email:          req.PayerEmail,
			FirstName:      "Visitante",
			LastName:       "SmartCoffee",
			Identification: identification{Type: "CPF", Number: "99999999999"},
		},
	}
	if !req.ExpiresAt.IsZero() {
		body.DateOfExpiration = req.ExpiresAt.Format(expirationFmt)
	}

	headers := map[string]string{"X-Idempotency-Key": req.IdempotencyKey}
	raw, err := m.do(ctx, fiber.MethodPost, "/v1/payments", body, headers)
	if err != nil {
		return nil, err
	}

	var resp paymentResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, malformed("invalid payment body", err)
	}
	charge := resp.toCharge()
	if charge.ID == 0 {
		return nil, malformed("payment id missing", nil)
	}
	if charge.QRCode == "" {
		return nil, malformed("PIX data missing from payment", nil)
	}
	return charge, nil
}

func (m *MercadoPago) GetCharge(ctx context.Context, chargeID int64) (*Charge, error) {
	raw, err := m.do(ctx, fiber.MethodGet, "/v1/payments/"+strconv.FormatInt(chargeID, 10), nil, nil)
	if err != nil {
		return nil, err
	}
	var resp paymentResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, malformed("invalid payment body", err)
	}
	if resp.ID == 0 || resp.Status == "" {
		return nil, malformed("payment id or status missing", nil)
	}
	return resp.toCharge(), nil
}

func (m *MercadoPago) FindChargeByReference(ctx context.Context, externalReference string) (*Charge, error) {
	q := url.Values{}
	q.Set("external_reference", externalReference)
	q.Set("sort", "date_created")
	q.Set("criteria", "desc")

	raw, err := m.do(ctx, fiber.MethodGet, "/v1/payments/search?"+q.Encode(), nil, nil)
	if err != nil {
		return nil, err
	}
	var resp searchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, malformed("invalid search body", err)
	}
	for _, p := range resp.Results {
		if p.ExternalReference == externalReference && p.ID != 0 {
			return p.toCharge(), nil
		}
	}
	return nil, nil
}

// do performs one HTTP call and classifies the failure modes.
func (m *MercadoPago) do(ctx context.Context, method, path string, body interface{}, headers map[string]string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	timeout := m.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	var a *fiber.Agent
	switch method {
	case fiber.MethodPost:
		a = fiber.Post(m.baseURL + path)
	default:
		a = fiber.Get(m.baseURL + path)
	}
	a.Set(fiber.HeaderAuthorization, "Bearer "+m.accessToken)
	for k, v := range headers {
		a.Set(k, v)
	}
	if body != nil {
		a.JSON(body)
	}
	a.Timeout(timeout)

	code, raw, errs := a.Bytes()
	if len(errs) > 0 {
		return nil, unavailable(errors.Join(errs...))
	}
	if code < 200 || code > 299 {
		return nil, rejected(code, errorMessage(code, raw))
	}
	return raw, nil
}

func errorMessage(code int, raw []byte) string {
	var resp errorResponse
	if err := json.Unmarshal(raw, &resp); err == nil {
		if len(resp.Cause) > 0 && resp.Cause[0].Description != "" {
			return resp.Cause[0].Description
		}
		if resp.Message != "" {
			return resp.Message
		}
		if resp.Error != "" {
			return resp.Error
		}
	}
	return fmt.Sprintf("processor responded with status %d", code)
}
