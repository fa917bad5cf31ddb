package sale

import (
	"context"
	"fmt"
	"testing"
	"time"

	"smartcoffee/internal/models"
	"smartcoffee/internal/repositories"
	"smartcoffee/internal/repositories/cache"
	"smartcoffee/internal/services/gateway"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateCharge(ctx context.Context, req gateway.ChargeRequest) (*gateway.Charge, error) {
	args := m.Called(ctx, req)
	charge, _ := args.Get(0).(*gateway.Charge)
	return charge, args.Error(1)
}

func (m *MockGateway) GetCharge(ctx context.Context, chargeID int64) (*gateway.Charge, error) {
	args := m.Called(ctx, chargeID)
	charge, _ := args.Get(0).(*gateway.Charge)
	return charge, args.Error(1)
}

func (m *MockGateway) FindChargeByReference(ctx context.Context, ref string) (*gateway.Charge, error) {
	args := m.Called(ctx, ref)
	charge, _ := args.Get(0).(*gateway.Charge)
	return charge, args.Error(1)
}

type fixture struct {
	db      *gorm.DB
	gw      *MockGateway
	cache   *cache.CacheService
	service *service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := repositories.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, repositories.Migrate(db))
	require.NoError(t, repositories.Seed(db))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	cacheSvc := cache.NewCacheService(client, time.Hour)

	gw := new(MockGateway)
	svc := NewService(
		repositories.NewDosageRepository(db),
		repositories.NewSaleRepository(db),
		gw,
		cacheSvc,
		Config{ChargeExpiration: 30 * time.Minute, SweepMinAge: 2 * time.Minute},
	).(*service)

	return &fixture{db: db, gw: gw, cache: cacheSvc, service: svc}
}

func (f *fixture) countSales(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Sale{}).Count(&n).Error)
	return n
}

func (f *fixture) saleByCharge(t *testing.T, chargeID int64) *models.Sale {
	t.Helper()
	sale, err := repositories.NewSaleRepository(f.db).GetByChargeID(context.Background(), chargeID)
	require.NoError(t, err)
	return sale
}

// expectCharge makes the processor accept the next charge and echo back the
// external reference it was given.
func (f *fixture) expectCharge(chargeID int64, refOut *string) {
	f.gw.On("CreateCharge", mock.Anything, mock.AnythingOfType("gateway.ChargeRequest")).
		Run(func(args mock.Arguments) {
			if refOut != nil {
				*refOut = args.Get(1).(gateway.ChargeRequest).ExternalReference
			}
		}).
		Return(&gateway.Charge{ID: chargeID, Status: gateway.StatusPending, QRCode: "00020126pix", QRCodeBase64: "iVBORw0KGgo="}, nil).
		Once()
}

func TestCreatePayment_HappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ref string
	f.expectCharge(1001, &ref)

	resp, err := f.service.CreatePayment(ctx, 1, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1001), resp.PaymentID)
	assert.NotEmpty(t, resp.Pix.QRCode)

	sale := f.saleByCharge(t, 1001)
	assert.Equal(t, models.SaleStatusPending, sale.Status)
	assert.Equal(t, "Expresso Clássico", sale.DosageName)
	assert.True(t, sale.Price.Equal(decimal.RequireFromString("4.50")))
	assert.Equal(t, ref, sale.ExternalReference)
	assert.Contains(t, ref, ReferencePrefix)

	status, err := f.service.GetPaymentStatus(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, models.SaleStatusPending, status)

	f.gw.On("GetCharge", mock.Anything, int64(1001)).
		Return(&gateway.Charge{ID: 1001, Status: gateway.StatusApproved, ExternalReference: ref}, nil)

	require.NoError(t, f.service.HandleWebhook(ctx, Notification{Topic: "payment", ID: "1001"}))

	status, err = f.service.GetPaymentStatus(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, models.SaleStatusApproved, status)

	f.gw.AssertExpectations(t)
}

func TestCreatePayment_SendsChargeDetails(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f.service.now = func() time.Time { return now }
	f.service.cfg.NotificationURL = "https://kiosk.example.com/payment-notification"

	f.gw.On("CreateCharge", mock.Anything, mock.MatchedBy(func(req gateway.ChargeRequest) bool {
		return req.Amount.Equal(decimal.RequireFromString("6.00")) &&
			req.Description == "Duplo" &&
			req.IdempotencyKey == "client-key" &&
			req.PayerEmail == "visitante_1772359200000@smartcoffee.com" &&
			req.ExpiresAt.Equal(now.Add(30*time.Minute)) &&
			req.NotificationURL == "https://kiosk.example.com/payment-notification"
	})).Return(&gateway.Charge{ID: 7, QRCode: "qr"}, nil).Once()

	_, err := f.service.CreatePayment(context.Background(), 2, "client-key")
	require.NoError(t, err)
	f.gw.AssertExpectations(t)
}

func TestCreatePayment_DosageNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.CreatePayment(ctx, 999, "")
	assert.ErrorIs(t, err, ErrDosageNotFound)

	require.NoError(t, f.db.Model(&models.Dosage{}).Where("id = ?", 3).Update("active", false).Error)
	_, err = f.service.CreatePayment(ctx, 3, "")
	assert.ErrorIs(t, err, ErrDosageNotFound)

	assert.Zero(t, f.countSales(t))
	f.gw.AssertNotCalled(t, "CreateCharge", mock.Anything, mock.Anything)
}

func TestCreatePayment_GatewayFailure(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name: "unavailable",
			err:  &gateway.Error{Kind: gateway.KindUnavailable},
		},
		{
			name:    "rejected with processor message",
			err:     &gateway.Error{Kind: gateway.KindRejected, Status: 400, Message: "payer.email invalid"},
			wantMsg: "payer.email invalid",
		},
		{
			name: "malformed",
			err:  &gateway.Error{Kind: gateway.KindMalformed, Message: ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.gw.On("CreateCharge", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			_, err := f.service.CreatePayment(context.Background(), 1, "")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrPaymentCreateFailed)
			assert.ErrorIs(t, err, tt.err)

			var createErr *CreateError
			require.ErrorAs(t, err, &createErr)
			assert.Equal(t, tt.wantMsg, createErr.Message)

			assert.Zero(t, f.countSales(t))
		})
	}
}

func TestCreatePayment_IdempotencyKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.expectCharge(2002, nil)

	first, err := f.service.CreatePayment(ctx, 1, "kiosk-key-1")
	require.NoError(t, err)

	second, err := f.service.CreatePayment(ctx, 1, "kiosk-key-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), f.countSales(t))

	_, err = f.service.CreatePayment(ctx, 2, "kiosk-key-1")
	assert.ErrorIs(t, err, ErrIdempotencyKeyReused)

	f.gw.AssertNumberOfCalls(t, "CreateCharge", 1)
}

func TestCreatePayment_KeyStillProvisional(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sale := &models.Sale{DosageID: 1, DosageName: "Expresso Clássico", Price: decimal.RequireFromString("4.50"), ExternalReference: "smartcoffee-sale-1", IdempotencyKey: "busy"}
	require.NoError(t, repositories.NewSaleRepository(f.db).CreateProvisional(ctx, sale))

	_, err := f.service.CreatePayment(ctx, 1, "busy")
	assert.ErrorIs(t, err, ErrPaymentInProgress)
	f.gw.AssertNotCalled(t, "CreateCharge", mock.Anything, mock.Anything)
}

func TestCreatePayment_SnapshotSurvivesCatalogEdit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.expectCharge(3003, nil)

	_, err := f.service.CreatePayment(ctx, 1, "")
	require.NoError(t, err)

	require.NoError(t, repositories.NewDosageRepository(f.db).Upsert(ctx, []models.Dosage{
		{ID: 1, Name: "Expresso Premium", ML: 30, Price: decimal.RequireFromString("9.90"), TimeS: 5, Active: true},
	}))

	sale := f.saleByCharge(t, 3003)
	assert.Equal(t, "Expresso Clássico", sale.DosageName)
	assert.True(t, sale.Price.Equal(decimal.RequireFromString("4.50")))
}

func TestGetPaymentStatus_UnknownIsPending(t *testing.T) {
	f := newFixture(t)
	status, err := f.service.GetPaymentStatus(context.Background(), 424242)
	require.NoError(t, err)
	assert.Equal(t, models.SaleStatusPending, status)
}

func TestGetPaymentStatus_ServesTerminalFromCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.cache.SetSaleStatus(ctx, 77, models.SaleStatusApproved))

	status, err := f.service.GetPaymentStatus(ctx, 77)
	require.NoError(t, err)
	assert.Equal(t, models.SaleStatusApproved, status)
}

func TestHandleWebhook(t *testing.T) {
	tests := []struct {
		name       string
		status     string
		detail     string
		wantStatus string
	}{
		{"approved", gateway.StatusApproved, "accredited", models.SaleStatusApproved},
		{"rejected", gateway.StatusRejected, "cc_rejected_other_reason", models.SaleStatusRejected},
		{"expired", gateway.StatusCancelled, gateway.StatusDetailExpired, models.SaleStatusExpired},
		{"cancelled", gateway.StatusCancelled, "by_collector", models.SaleStatusCancelled},
		{"still pending", gateway.StatusPending, "pending_waiting_transfer", models.SaleStatusPending},
		{"in process", gateway.StatusInProcess, "", models.SaleStatusPending},
		{"refunded is ignored", gateway.StatusRefunded, "", models.SaleStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			var ref string
			f.expectCharge(500, &ref)
			_, err := f.service.CreatePayment(ctx, 1, "")
			require.NoError(t, err)

			f.gw.On("GetCharge", mock.Anything, int64(500)).
				Return(&gateway.Charge{ID: 500, Status: tt.status, StatusDetail: tt.detail, ExternalReference: ref}, nil)

			require.NoError(t, f.service.HandleWebhook(ctx, Notification{Topic: "payment", ID: "500"}))
			assert.Equal(t, tt.wantStatus, f.saleByCharge(t, 500).Status)
		})
	}
}

func TestHandleWebhook_DuplicateDeliveries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var ref string
	f.expectCharge(600, &ref)
	_, err := f.service.CreatePayment(ctx, 1, "")
	require.NoError(t, err)

	f.gw.On("GetCharge", mock.Anything, int64(600)).
		Return(&gateway.Charge{ID: 600, Status: gateway.StatusApproved, ExternalReference: ref}, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, f.service.HandleWebhook(ctx, Notification{Topic: "payment", ID: "600"}))
	}

	var approved int64
	require.NoError(t, f.db.Model(&models.Sale{}).Where("status = ?", models.SaleStatusApproved).Count(&approved).Error)
	assert.Equal(t, int64(1), approved)
	assert.Equal(t, int64(1), f.countSales(t))
}

func TestHandleWebhook_TerminalIsFinal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var ref string
	f.expectCharge(700, &ref)
	_, err := f.service.CreatePayment(ctx, 1, "")
	require.NoError(t, err)

	f.gw.On("GetCharge", mock.Anything, int64(700)).
		Return(&gateway.Charge{ID: 700, Status: gateway.StatusApproved, ExternalReference: ref}, nil).Once()
	require.NoError(t, f.service.HandleWebhook(ctx, Notification{Topic: "payment", ID: "700"}))

	f.gw.On("GetCharge", mock.Anything, int64(700)).
		Return(&gateway.Charge{ID: 700, Status: gateway.StatusCancelled, ExternalReference: ref}, nil).Once()
	require.NoError(t, f.service.HandleWebhook(ctx, Notification{Topic: "payment", ID: "700"}))

	assert.Equal(t, models.SaleStatusApproved, f.saleByCharge(t, 700).Status)
}

func TestHandleWebhook_IgnoredAndInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.HandleWebhook(ctx, Notification{Topic: "merchant_order", ID: "999"}))

	err := f.service.HandleWebhook(ctx, Notification{Topic: "payment", ID: "abc"})
	assert.ErrorIs(t, err, ErrInvalidNotification)

	f.gw.On("GetCharge", mock.Anything, int64(31)).Return(nil, &gateway.Error{Kind: gateway.KindUnavailable}).Once()
	err = f.service.HandleWebhook(ctx, Notification{Topic: "payment", ID: "31"})
	assert.ErrorIs(t, err, gateway.ErrUnavailable)

	assert.Zero(t, f.countSales(t))
	f.gw.AssertNumberOfCalls(t, "GetCharge", 1)
}

func TestSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := repositories.NewSaleRepository(f.db)
	old := time.Now().Add(-time.Hour)

	// A pending sale the webhook never settled.
	var pendingRef string
	f.expectCharge(800, &pendingRef)
	_, err := f.service.CreatePayment(ctx, 1, "")
	require.NoError(t, err)

	// A reservation whose charge was created before a crash.
	orphan := &models.Sale{DosageID: 1, DosageName: "Expresso Clássico", Price: decimal.RequireFromString("4.50"), ExternalReference: "smartcoffee-sale-10", IdempotencyKey: "orphan"}
	require.NoError(t, repo.CreateProvisional(ctx, orphan))

	// A reservation that never reached the processor.
	abandoned := &models.Sale{DosageID: 2, DosageName: "Duplo", Price: decimal.RequireFromString("6.00"), ExternalReference: "smartcoffee-sale-11", IdempotencyKey: "abandoned"}
	require.NoError(t, repo.CreateProvisional(ctx, abandoned))

	// Too young to touch.
	fresh := &models.Sale{DosageID: 2, DosageName: "Duplo", Price: decimal.RequireFromString("6.00"), ExternalReference: "smartcoffee-sale-12", IdempotencyKey: "fresh"}
	require.NoError(t, repo.CreateProvisional(ctx, fresh))

	require.NoError(t, f.db.Model(&models.Sale{}).
		Where("external_reference <> ?", "smartcoffee-sale-12").
		Update("created_at", old).Error)

	f.gw.On("GetCharge", mock.Anything, int64(800)).
		Return(&gateway.Charge{ID: 800, Status: gateway.StatusCancelled, StatusDetail: gateway.StatusDetailExpired, ExternalReference: pendingRef}, nil)
	f.gw.On("FindChargeByReference", mock.Anything, "smartcoffee-sale-10").
		Return(&gateway.Charge{ID: 810, Status: gateway.StatusApproved, ExternalReference: "smartcoffee-sale-10", QRCode: "qr"}, nil)
	f.gw.On("FindChargeByReference", mock.Anything, "smartcoffee-sale-11").
		Return(nil, nil)

	result, err := f.service.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Settled: 2, Promoted: 1, Deleted: 1}, result)

	assert.Equal(t, models.SaleStatusExpired, f.saleByCharge(t, 800).Status)
	assert.Equal(t, models.SaleStatusApproved, f.saleByCharge(t, 810).Status)

	_, err = repo.GetByExternalReference(ctx, "smartcoffee-sale-11")
	assert.ErrorIs(t, err, repositories.ErrSaleNotFound)

	stillFresh, err := repo.GetByExternalReference(ctx, "smartcoffee-sale-12")
	require.NoError(t, err)
	assert.Equal(t, models.SaleStatusProvisional, stillFresh.Status)

	f.gw.AssertExpectations(t)
}

func TestSweep_StuckRowsDoNotStarveNewerSales(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	old := time.Now().Add(-time.Hour)

	// One more stuck row than a full batch, then the sale that can settle.
	stuck := defaultSweepBatchSize + 1
	for i := 0; i <= stuck; i++ {
		chargeID := int64(1000 + i)
		ref := fmt.Sprintf("smartcoffee-sale-%d", 5000+i)
		require.NoError(t, f.db.Create(&models.Sale{
			DosageID:          1,
			DosageName:        "Expresso Clássico",
			Price:             decimal.RequireFromString("4.50"),
			Status:            models.SaleStatusPending,
			ExternalReference: ref,
			IdempotencyKey:    fmt.Sprintf("stuck-%d", i),
			ChargeID:          &chargeID,
			CreatedAt:         old,
		}).Error)
		if i < stuck {
			f.gw.On("GetCharge", mock.Anything, chargeID).
				Return(nil, &gateway.Error{Kind: gateway.KindRejected, Status: 404})
		} else {
			f.gw.On("GetCharge", mock.Anything, chargeID).
				Return(&gateway.Charge{ID: chargeID, Status: gateway.StatusApproved, ExternalReference: ref}, nil)
		}
	}
	lastCharge := int64(1000 + stuck)

	first, err := f.service.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Skipped: defaultSweepBatchSize}, first)
	assert.Equal(t, models.SaleStatusPending, f.saleByCharge(t, lastCharge).Status)

	second, err := f.service.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Settled)
	assert.Equal(t, models.SaleStatusApproved, f.saleByCharge(t, lastCharge).Status)

	// The next sweep wraps around to the oldest rows again.
	third, err := f.service.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Skipped: defaultSweepBatchSize}, third)
}

func TestSweep_SkipsWhenLocked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ok, err := f.cache.AcquireLock(ctx, sweepLockName, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	result, err := f.service.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{}, result)
	f.gw.AssertNotCalled(t, "FindChargeByReference", mock.Anything, mock.Anything)
}

func TestStatusForCharge(t *testing.T) {
	assert.Equal(t, models.SaleStatusApproved, StatusForCharge(gateway.StatusApproved, ""))
	assert.Equal(t, models.SaleStatusRejected, StatusForCharge(gateway.StatusRejected, ""))
	assert.Equal(t, models.SaleStatusExpired, StatusForCharge(gateway.StatusCancelled, gateway.StatusDetailExpired))
	assert.Equal(t, models.SaleStatusCancelled, StatusForCharge(gateway.StatusCancelled, "by_payer"))
	assert.Empty(t, StatusForCharge(gateway.StatusAuthorized, ""))
	assert.Empty(t, StatusForCharge(gateway.StatusChargedBack, ""))
	assert.Empty(t, StatusForCharge("something_new", ""))
}

func TestReferenceGenerator_StrictlyIncreasing(t *testing.T) {
	frozen := time.UnixMilli(1700000000000)
	g := &ReferenceGenerator{now: func() time.Time { return frozen }}

	assert.Equal(t, "smartcoffee-sale-1700000000000", g.Next())
	assert.Equal(t, "smartcoffee-sale-1700000000001", g.Next())
	assert.Equal(t, "smartcoffee-sale-1700000000002", g.Next())

	seen := map[string]bool{}
	g = NewReferenceGenerator()
	for i := 0; i < 1000; i++ {
		ref := g.Next()
		assert.False(t, seen[ref])
		seen[ref] = true
	}
}
