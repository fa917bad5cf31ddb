package gateway

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Processor status vocabulary for instant-transfer charges.
const (
	StatusPending     = "pending"
	StatusApproved    = "approved"
	StatusAuthorized  = "authorized"
	StatusInProcess   = "in_process"
	StatusInMediation = "in_mediation"
	StatusRejected    = "rejected"
	StatusCancelled   = "cancelled"
	StatusRefunded    = "refunded"
	StatusChargedBack = "charged_back"

	StatusDetailExpired = "expired"
)

// Gateway creates and inspects charges at the payment processor.
// Implementations never retry; callers own the retry policy.
type Gateway interface {
	CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
	GetCharge(ctx context.Context, chargeID int64) (*Charge, error)
	// FindChargeByReference returns the newest charge carrying the external
	// reference, or nil when the processor has none.
	FindChargeByReference(ctx context.Context, externalReference string) (*Charge, error)
}

// ChargeRequest describes one instant-transfer charge.
type ChargeRequest struct {
	Amount            decimal.Decimal
	Description       string
	ExternalReference string
	IdempotencyKey    string
	PayerEmail        string
	ExpiresAt         time.Time
	NotificationURL   string
}

// Charge is the processor's view of a charge.
type Charge struct {
	ID                int64
	Status            string
	StatusDetail      string
	ExternalReference string
	QRCode            string
	QRCodeBase64      string
}
