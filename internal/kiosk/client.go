package kiosk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"smartcoffee/internal/models"

	"github.com/gofiber/fiber/v2"
)

const defaultTimeout = 10 * time.Second

// ErrTransport means the server could not be reached or did not answer; the
// request may or may not have been applied.
var ErrTransport = errors.New("kiosk: server unreachable")

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server responded %d: %s", e.Status, e.Message)
}

// Client talks to the kiosk backend over HTTP.
type Client struct {
	baseURL string
	timeout time.Duration
}

func NewClient(baseURL string) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), timeout: defaultTimeout}
}

func (c *Client) ClientData(ctx context.Context) (*models.ClientData, error) {
	var out models.ClientData
	if err := c.do(ctx, fiber.MethodGet, "/client-data", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePayment asks for a charge. The same key always maps to the same charge.
func (c *Client) CreatePayment(ctx context.Context, dosageID uint, idempotencyKey string) (*models.CreatePaymentResponse, error) {
	var out models.CreatePaymentResponse
	body := models.CreatePaymentRequest{DosageID: dosageID}
	headers := map[string]string{"Idempotency-Key": idempotencyKey}
	if err := c.do(ctx, fiber.MethodPost, "/create-payment", body, headers, &out); err != nil {
		return nil, err
	}
	if out.PaymentID == 0 || out.Pix.QRCode == "" {
		return nil, errors.New("invalid PIX data received from server")
	}
	return &out, nil
}

func (c *Client) PaymentStatus(ctx context.Context, paymentID int64) (string, error) {
	var out models.PaymentStatusResponse
	path := "/payment-status/" + strconv.FormatInt(paymentID, 10)
	if err := c.do(ctx, fiber.MethodGet, path, nil, nil, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, headers map[string]string, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	var a *fiber.Agent
	switch method {
	case fiber.MethodPost:
		a = fiber.Post(c.baseURL + path)
	default:
		a = fiber.Get(c.baseURL + path)
	}
	for k, v := range headers {
		a.Set(k, v)
	}
	if body != nil {
		a.JSON(body)
	}
	a.Timeout(timeout)

	code, raw, errs := a.Bytes()
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrTransport}, errs...)...)
	}
	if code < 200 || code > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &e)
		if e.Error == "" {
			e.Error = fiber.ErrInternalServerError.Message
		}
		return &APIError{Status: code, Message: e.Error}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("invalid response from %s: %w", path, err)
	}
	return nil
}
