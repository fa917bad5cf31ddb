package kiosk

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"smartcoffee/internal/models"

	"github.com/google/uuid"
)

// PollInterval is the fixed status polling cadence.
const PollInterval = 3 * time.Second

const (
	createAttempts = 3
	retryDelay     = 2 * time.Second
)

// ErrSessionActive is returned by Buy while another purchase is in flight.
var ErrSessionActive = errors.New("a payment session is already in progress")

// API is the part of the backend the kiosk needs.
type API interface {
	ClientData(ctx context.Context) (*models.ClientData, error)
	CreatePayment(ctx context.Context, dosageID uint, idempotencyKey string) (*models.CreatePaymentResponse, error)
	PaymentStatus(ctx context.Context, paymentID int64) (string, error)
}

// Kiosk runs purchases against the backend and keeps their session on disk.
type Kiosk struct {
	api        API
	store      *SessionStore
	interval   time.Duration
	retryDelay time.Duration
	newKey     func() string
}

func New(api API, store *SessionStore) *Kiosk {
	return &Kiosk{
		api:        api,
		store:      store,
		interval:   PollInterval,
		retryDelay: retryDelay,
		newKey:     uuid.NewString,
	}
}

func (k *Kiosk) Menu(ctx context.Context) (*models.ClientData, error) {
	return k.api.ClientData(ctx)
}

// Buy creates a charge for dosage and persists the session. A create call
// that never answered is retried with its original idempotency key, so the
// backend hands back the same charge instead of opening a second one.
func (k *Kiosk) Buy(ctx context.Context, dosage models.KioskDosage) (*Session, error) {
	if _, err := k.store.Load(); err == nil {
		return nil, ErrSessionActive
	} else if !errors.Is(err, ErrNoSession) {
		return nil, err
	}

	attempt, err := k.store.LoadAttempt()
	if err != nil && !errors.Is(err, ErrNoSession) {
		return nil, err
	}
	if attempt == nil || attempt.Dosage.ID != dosage.ID {
		attempt = &Attempt{IdempotencyKey: k.newKey(), Dosage: dosage}
		if err := k.store.SaveAttempt(attempt); err != nil {
			return nil, err
		}
	}

	resp, err := k.create(ctx, dosage.ID, attempt.IdempotencyKey)
	if err != nil {
		// Keep the attempt only when the outcome is unknown.
		if !errors.Is(err, ErrTransport) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			_ = k.store.Clear()
		}
		return nil, err
	}

	session := &Session{
		PaymentID:      resp.PaymentID,
		IdempotencyKey: attempt.IdempotencyKey,
		Dosage:         dosage,
		Pix:            resp.Pix,
		CreatedAt:      time.Now().UTC(),
	}
	if err := k.store.Save(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (k *Kiosk) create(ctx context.Context, dosageID uint, key string) (*models.CreatePaymentResponse, error) {
	var lastErr error
	for i := 0; i < createAttempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(k.retryDelay):
			}
		}
		resp, err := k.api.CreatePayment(ctx, dosageID, key)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var apiErr *APIError
		switch {
		case errors.Is(err, ErrTransport):
			log.Printf("create-payment unreachable, retrying: %v", err)
		case errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict:
			// first call with this key still running on the server
		default:
			return nil, err
		}
	}
	return nil, lastErr
}

// Resume returns the persisted session, or ErrNoSession.
func (k *Kiosk) Resume() (*Session, error) {
	return k.store.Load()
}

// Cancel abandons the purchase locally. The charge itself is left to expire.
func (k *Kiosk) Cancel() error {
	return k.store.Clear()
}

// Wait polls the session's charge until it is final or ctx ends. On a final
// status the session is cleared; when ctx ends first it is kept for Resume.
func (k *Kiosk) Wait(ctx context.Context, session *Session, onStatus func(string)) (string, error) {
	p := &Poller{api: k.api, interval: k.interval}
	status, err := p.Run(ctx, session.PaymentID, onStatus)
	if err != nil {
		return "", err
	}
	if err := k.store.Clear(); err != nil {
		return status, err
	}
	return status, nil
}

// Poller asks for a charge status on a fixed cadence.
type Poller struct {
	api      API
	interval time.Duration
}

func NewPoller(api API, interval time.Duration) *Poller {
	return &Poller{api: api, interval: interval}
}

// Run returns the first terminal status observed. Failed polls are retried on
// the next tick.
func (p *Poller) Run(ctx context.Context, paymentID int64, onStatus func(string)) (string, error) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		status, err := p.api.PaymentStatus(ctx, paymentID)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			log.Printf("payment-status %d failed: %v", paymentID, err)
			continue
		}
		if onStatus != nil {
			onStatus(status)
		}
		if models.IsTerminalSaleStatus(status) {
			return status, nil
		}
	}
}
