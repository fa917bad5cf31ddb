package sale

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"smartcoffee/internal/models"
	"smartcoffee/internal/repositories"
	"smartcoffee/internal/services/gateway"

	"github.com/google/uuid"
)

const (
	topicPayment  = "payment"
	sweepLockName = "sale-sweeper"
	sweepLockTTL  = 5 * time.Minute

	defaultSweepBatchSize = 50
	maxReserveAttempts    = 3
)

type service struct {
	dosages DosageReader
	sales   repositories.SaleRepository
	gateway gateway.Gateway
	cache   Cache
	refs    *ReferenceGenerator
	cfg     Config
	now     func() time.Time

	// sweep position per status, so rows that never settle cannot pin
	// the batch to the same oldest sales
	cursorMu sync.Mutex
	cursors  map[string]uint
}

// NewService creates a new sale service
func NewService(
	dosages DosageReader,
	sales repositories.SaleRepository,
	gw gateway.Gateway,
	cache Cache,
	cfg Config,
) Service {
	if cfg.PayerEmailDomain == "" {
		cfg.PayerEmailDomain = "smartcoffee.com"
	}
	if cfg.SweepBatchSize <= 0 {
		cfg.SweepBatchSize = defaultSweepBatchSize
	}
	return &service{
		dosages: dosages,
		sales:   sales,
		gateway: gw,
		cache:   cache,
		refs:    NewReferenceGenerator(),
		cfg:     cfg,
		now:     time.Now,
		cursors: make(map[string]uint),
	}
}

func (s *service) CreatePayment(ctx context.Context, dosageID uint, idempotencyKey string) (*models.CreatePaymentResponse, error) {
	dosage, err := s.dosages.GetByID(ctx, dosageID)
	if err != nil {
		if errors.Is(err, repositories.ErrDosageNotFound) {
			return nil, ErrDosageNotFound
		}
		return nil, fmt.Errorf("failed to load dosage: %w", err)
	}
	if !dosage.Active {
		return nil, ErrDosageNotFound
	}

	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	} else if resp, err := s.replay(ctx, idempotencyKey, dosageID); resp != nil || err != nil {
		return resp, err
	}

	sale, err := s.reserve(ctx, dosage, idempotencyKey)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		// Lost the race for the key to a concurrent request.
		resp, err := s.replay(ctx, idempotencyKey, dosageID)
		if resp == nil && err == nil {
			err = ErrPaymentInProgress
		}
		return resp, err
	}

	charge, err := s.gateway.CreateCharge(ctx, gateway.ChargeRequest{
		Amount:            dosage.Price,
		Description:       dosage.Name,
		ExternalReference: sale.ExternalReference,
		IdempotencyKey:    idempotencyKey,
		PayerEmail:        fmt.Sprintf("visitante_%d@%s", s.now().UnixMilli(), s.cfg.PayerEmailDomain),
		ExpiresAt:         s.expiresAt(),
		NotificationURL:   s.cfg.NotificationURL,
	})
	if err != nil {
		log.Printf("Failed to create charge for %s: %v", sale.ExternalReference, err)
		if derr := s.sales.DeleteProvisional(context.WithoutCancel(ctx), sale.ID); derr != nil {
			log.Printf("Failed to roll back provisional sale %d: %v", sale.ID, derr)
		}
		return nil, &CreateError{Message: gateway.MessageOf(err), Err: err}
	}

	if err := s.sales.Promote(ctx, sale.ID, charge.ID, charge.QRCode, charge.QRCodeBase64); err != nil {
		log.Printf("Charge %d created but sale %s not recorded: %v", charge.ID, sale.ExternalReference, err)
		return nil, fmt.Errorf("failed to record sale: %w", err)
	}

	return &models.CreatePaymentResponse{
		PaymentID: charge.ID,
		Pix: models.PixPayload{
			QRCode:       charge.QRCode,
			QRCodeBase64: charge.QRCodeBase64,
		},
	}, nil
}

// reserve inserts the provisional row. It returns nil without error when the
// idempotency key is already taken.
func (s *service) reserve(ctx context.Context, dosage *models.Dosage, key string) (*models.Sale, error) {
	for attempt := 0; attempt < maxReserveAttempts; attempt++ {
		sale := &models.Sale{
			DosageID:          dosage.ID,
			DosageName:        dosage.Name,
			Price:             dosage.Price,
			ExternalReference: s.refs.Next(),
			IdempotencyKey:    key,
		}
		err := s.sales.CreateProvisional(ctx, sale)
		if err == nil {
			return sale, nil
		}
		if !errors.Is(err, repositories.ErrDuplicateSale) {
			return nil, fmt.Errorf("failed to reserve sale: %w", err)
		}
		if _, err := s.sales.GetByIdempotencyKey(ctx, key); err == nil {
			return nil, nil
		}
		// The external reference collided with a row from an earlier process.
	}
	return nil, fmt.Errorf("failed to reserve sale: %w", repositories.ErrDuplicateSale)
}

// replay returns the stored charge for a key that was seen before.
func (s *service) replay(ctx context.Context, key string, dosageID uint) (*models.CreatePaymentResponse, error) {
	existing, err := s.sales.GetByIdempotencyKey(ctx, key)
	if err != nil {
		if errors.Is(err, repositories.ErrSaleNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
	}
	if existing.DosageID != dosageID {
		return nil, ErrIdempotencyKeyReused
	}
	if existing.Status == models.SaleStatusProvisional || existing.ChargeID == nil {
		return nil, ErrPaymentInProgress
	}
	return &models.CreatePaymentResponse{
		PaymentID: *existing.ChargeID,
		Pix: models.PixPayload{
			QRCode:       existing.QRCode,
			QRCodeBase64: existing.QRCodeBase64,
		},
	}, nil
}

func (s *service) expiresAt() time.Time {
	if s.cfg.ChargeExpiration <= 0 {
		return time.Time{}
	}
	return s.now().Add(s.cfg.ChargeExpiration)
}

func (s *service) GetPaymentStatus(ctx context.Context, chargeID int64) (string, error) {
	if status, found, err := s.cache.GetSaleStatus(ctx, chargeID); err != nil {
		log.Printf("Sale status cache read failed for %d: %v", chargeID, err)
	} else if found {
		return status, nil
	}

	sale, err := s.sales.GetByChargeID(ctx, chargeID)
	if err != nil {
		if errors.Is(err, repositories.ErrSaleNotFound) {
			return models.SaleStatusPending, nil
		}
		return "", fmt.Errorf("failed to load sale: %w", err)
	}

	if err := s.cache.SetSaleStatus(ctx, chargeID, sale.Status); err != nil {
		log.Printf("Sale status cache write failed for %d: %v", chargeID, err)
	}
	if sale.Status == models.SaleStatusProvisional {
		return models.SaleStatusPending, nil
	}
	return sale.Status, nil
}

func (s *service) HandleWebhook(ctx context.Context, n Notification) error {
	if !strings.EqualFold(n.Topic, topicPayment) {
		return nil
	}
	chargeID, err := strconv.ParseInt(strings.TrimSpace(n.ID), 10, 64)
	if err != nil || chargeID <= 0 {
		return fmt.Errorf("%w: id %q", ErrInvalidNotification, n.ID)
	}

	charge, err := s.gateway.GetCharge(ctx, chargeID)
	if err != nil {
		return fmt.Errorf("failed to fetch charge %d: %w", chargeID, err)
	}

	if _, err := s.settle(ctx, charge, "webhook"); err != nil {
		return err
	}
	return nil
}

// settle applies the processor status to the sale carrying the charge's
// external reference. Only pending sales move, so repeats are no-ops.
func (s *service) settle(ctx context.Context, charge *gateway.Charge, source string) (bool, error) {
	status := StatusForCharge(charge.Status, charge.StatusDetail)
	if status == "" || charge.ExternalReference == "" {
		return false, nil
	}

	changed, err := s.sales.Transition(ctx, charge.ExternalReference, status)
	if err != nil {
		return false, fmt.Errorf("failed to update sale %s: %w", charge.ExternalReference, err)
	}
	if changed {
		log.Printf("Sale %s %s via %s", charge.ExternalReference, status, source)
		if err := s.cache.SetSaleStatus(ctx, charge.ID, status); err != nil {
			log.Printf("Sale status cache write failed for %d: %v", charge.ID, err)
		}
	}
	return changed, nil
}

func (s *service) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	locked, err := s.cache.AcquireLock(ctx, sweepLockName, sweepLockTTL)
	if err != nil {
		return result, fmt.Errorf("failed to acquire sweep lock: %w", err)
	}
	if !locked {
		return result, nil
	}
	defer func() {
		if err := s.cache.ReleaseLock(context.WithoutCancel(ctx), sweepLockName); err != nil {
			log.Printf("Failed to release sweep lock: %v", err)
		}
	}()

	cutoff := s.now().Add(-s.cfg.SweepMinAge)

	provisional, err := s.nextBatch(ctx, models.SaleStatusProvisional, cutoff)
	if err != nil {
		return result, fmt.Errorf("failed to list provisional sales: %w", err)
	}
	for _, sale := range provisional {
		s.repairProvisional(ctx, sale, &result)
	}

	pending, err := s.nextBatch(ctx, models.SaleStatusPending, cutoff)
	if err != nil {
		return result, fmt.Errorf("failed to list pending sales: %w", err)
	}
	for _, sale := range pending {
		if sale.ChargeID == nil {
			result.Skipped++
			continue
		}
		charge, err := s.gateway.GetCharge(ctx, *sale.ChargeID)
		if err != nil {
			log.Printf("Sweep: charge %d lookup failed: %v", *sale.ChargeID, err)
			result.Skipped++
			continue
		}
		changed, err := s.settle(ctx, charge, "sweep")
		if err != nil {
			log.Printf("Sweep: %v", err)
			result.Skipped++
			continue
		}
		if changed {
			result.Settled++
		}
	}

	return result, nil
}

// nextBatch returns the next page of stale sales in status and advances the
// cursor. Once the end is reached the following sweep starts over.
func (s *service) nextBatch(ctx context.Context, status string, cutoff time.Time) ([]models.Sale, error) {
	s.cursorMu.Lock()
	after := s.cursors[status]
	s.cursorMu.Unlock()

	sales, err := s.sales.ListByStatusBefore(ctx, status, cutoff, after, s.cfg.SweepBatchSize)
	if err == nil && len(sales) == 0 && after > 0 {
		after = 0
		sales, err = s.sales.ListByStatusBefore(ctx, status, cutoff, after, s.cfg.SweepBatchSize)
	}
	if err != nil {
		return nil, err
	}

	next := uint(0)
	if len(sales) == s.cfg.SweepBatchSize {
		next = sales[len(sales)-1].ID
	}
	s.cursorMu.Lock()
	s.cursors[status] = next
	s.cursorMu.Unlock()
	return sales, nil
}

// repairProvisional resolves a reservation left behind by a crash between
// the charge call and the promotion.
func (s *service) repairProvisional(ctx context.Context, sale models.Sale, result *SweepResult) {
	charge, err := s.gateway.FindChargeByReference(ctx, sale.ExternalReference)
	if err != nil {
		log.Printf("Sweep: search for %s failed: %v", sale.ExternalReference, err)
		result.Skipped++
		return
	}

	if charge == nil {
		if err := s.sales.DeleteProvisional(ctx, sale.ID); err != nil {
			log.Printf("Sweep: failed to drop provisional sale %d: %v", sale.ID, err)
			result.Skipped++
			return
		}
		result.Deleted++
		return
	}

	if err := s.sales.Promote(ctx, sale.ID, charge.ID, charge.QRCode, charge.QRCodeBase64); err != nil {
		log.Printf("Sweep: failed to promote sale %s: %v", sale.ExternalReference, err)
		result.Skipped++
		return
	}
	result.Promoted++

	if charge.ExternalReference == "" {
		charge.ExternalReference = sale.ExternalReference
	}
	if changed, err := s.settle(ctx, charge, "sweep"); err != nil {
		log.Printf("Sweep: %v", err)
	} else if changed {
		result.Settled++
	}
}
