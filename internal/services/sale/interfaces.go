package sale

import (
	"context"
	"time"

	"smartcoffee/internal/models"
)

// Service drives a sale from reservation to a terminal status.
type Service interface {
	// CreatePayment opens a charge for a dosage. A repeated idempotency key
	// replays the charge created the first time.
	CreatePayment(ctx context.Context, dosageID uint, idempotencyKey string) (*models.CreatePaymentResponse, error)
	// GetPaymentStatus reads the local status only; unknown charges are pending.
	GetPaymentStatus(ctx context.Context, chargeID int64) (string, error)
	HandleWebhook(ctx context.Context, n Notification) error
	// Sweep reconciles stale pending and provisional sales with the processor.
	Sweep(ctx context.Context) (SweepResult, error)
}

// DosageReader is the catalog lookup the service needs.
type DosageReader interface {
	GetByID(ctx context.Context, id uint) (*models.Dosage, error)
}

// Cache holds terminal statuses and the sweep lock.
type Cache interface {
	GetSaleStatus(ctx context.Context, chargeID int64) (string, bool, error)
	SetSaleStatus(ctx context.Context, chargeID int64, status string) error
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name string) error
}

// Notification is a processor push, already normalized from either query shape.
type Notification struct {
	Topic string
	ID    string
}

// SweepResult counts what one sweep changed.
type SweepResult struct {
	Settled  int
	Promoted int
	Deleted  int
	Skipped  int
}

// Config tunes charge creation and reconciliation.
type Config struct {
	NotificationURL  string
	PayerEmailDomain string
	ChargeExpiration time.Duration
	SweepMinAge      time.Duration
	SweepBatchSize   int
}
