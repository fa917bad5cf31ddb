package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale statuses. A sale is reserved as provisional before the processor is
// called, becomes pending once a charge exists, and then moves at most once
// to one of the terminal statuses.
const (
	SaleStatusProvisional = "provisional"
	SaleStatusPending     = "pending"
	SaleStatusApproved    = "approved"
	SaleStatusRejected    = "rejected"
	SaleStatusCancelled   = "cancelled"
	SaleStatusExpired     = "expired"
)

// Sale is one charge attempt. Name and price are snapshotted from the dosage
// at creation time.
type Sale struct {
	ID                uint            `gorm:"primarykey" json:"id"`
	DosageID          uint            `gorm:"not null;index" json:"dosage_id"`
	DosageName        string          `gorm:"size:255;not null" json:"dosage_name"`
	Price             decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Status            string          `gorm:"size:50;not null;index" json:"status"`
	ExternalReference string          `gorm:"size:255;not null;uniqueIndex" json:"external_reference"`
	IdempotencyKey    string          `gorm:"size:64;not null;uniqueIndex" json:"-"`
	ChargeID          *int64          `gorm:"column:payment_id;uniqueIndex" json:"payment_id"`
	QRCode            string          `gorm:"type:text" json:"-"`
	QRCodeBase64      string          `gorm:"type:text" json:"-"`
	CreatedAt         time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// IsTerminalSaleStatus reports whether no further transition is allowed.
func IsTerminalSaleStatus(status string) bool {
	switch status {
	case SaleStatusApproved, SaleStatusRejected, SaleStatusCancelled, SaleStatusExpired:
		return true
	}
	return false
}
