package repositories

import (
	"context"
	"errors"
	"time"

	"smartcoffee/internal/models"

	"gorm.io/gorm"
)

type SaleRepository interface {
	CreateProvisional(ctx context.Context, sale *models.Sale) error
	Promote(ctx context.Context, id uint, chargeID int64, qrCode, qrCodeBase64 string) error
	DeleteProvisional(ctx context.Context, id uint) error
	Transition(ctx context.Context, externalReference, status string) (bool, error)

	GetByIdempotencyKey(ctx context.Context, key string) (*models.Sale, error)
	GetByChargeID(ctx context.Context, chargeID int64) (*models.Sale, error)
	GetByExternalReference(ctx context.Context, ref string) (*models.Sale, error)
	ListByStatusBefore(ctx context.Context, status string, before time.Time, afterID uint, limit int) ([]models.Sale, error)
	List(ctx context.Context) ([]models.Sale, error)
}

type saleRepository struct {
	db *gorm.DB
}

func NewSaleRepository(db *gorm.DB) SaleRepository {
	return &saleRepository{db: db}
}

// CreateProvisional reserves a sale row before any charge exists.
func (r *saleRepository) CreateProvisional(ctx context.Context, sale *models.Sale) error {
	sale.Status = models.SaleStatusProvisional
	sale.ChargeID = nil
	if err := r.db.WithContext(ctx).Create(sale).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateSale
		}
		return err
	}
	return nil
}

// Promote binds a created charge to a provisional row and makes it pending.
func (r *saleRepository) Promote(ctx context.Context, id uint, chargeID int64, qrCode, qrCodeBase64 string) error {
	res := r.db.WithContext(ctx).Model(&models.Sale{}).
		Where("id = ? AND status = ?", id, models.SaleStatusProvisional).
		Updates(map[string]interface{}{
			"status":         models.SaleStatusPending,
			"payment_id":     chargeID,
			"qr_code":        qrCode,
			"qr_code_base64": qrCodeBase64,
		})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicateSale
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSaleNotPending
	}
	return nil
}

// DeleteProvisional rolls back a reservation whose charge was never created.
func (r *saleRepository) DeleteProvisional(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, models.SaleStatusProvisional).
		Delete(&models.Sale{}).Error
}

// Transition moves a pending sale to status. It reports false when the sale
// was not pending, which makes repeated deliveries a no-op.
func (r *saleRepository) Transition(ctx context.Context, externalReference, status string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Sale{}).
		Where("external_reference = ? AND status = ?", externalReference, models.SaleStatusPending).
		Update("status", status)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *saleRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.Sale, error) {
	return r.first(ctx, "idempotency_key = ?", key)
}

func (r *saleRepository) GetByChargeID(ctx context.Context, chargeID int64) (*models.Sale, error) {
	return r.first(ctx, "payment_id = ?", chargeID)
}

func (r *saleRepository) GetByExternalReference(ctx context.Context, ref string) (*models.Sale, error) {
	return r.first(ctx, "external_reference = ?", ref)
}

func (r *saleRepository) first(ctx context.Context, query string, arg interface{}) (*models.Sale, error) {
	var sale models.Sale
	if err := r.db.WithContext(ctx).Where(query, arg).First(&sale).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSaleNotFound
		}
		return nil, err
	}
	return &sale, nil
}

// ListByStatusBefore pages through sales in status created before the cutoff,
// in id order, starting after afterID.
func (r *saleRepository) ListByStatusBefore(ctx context.Context, status string, before time.Time, afterID uint, limit int) ([]models.Sale, error) {
	sales := []models.Sale{}
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ? AND id > ?", status, before, afterID).
		Order("id").
		Limit(limit).
		Find(&sales).Error
	return sales, err
}

// List returns every sale, newest first.
func (r *saleRepository) List(ctx context.Context) ([]models.Sale, error) {
	sales := []models.Sale{}
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&sales).Error
	return sales, err
}
