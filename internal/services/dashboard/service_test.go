package dashboard

import (
	"context"
	"testing"

	"smartcoffee/internal/models"
	"smartcoffee/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotals(t *testing.T) {
	sales := []models.Sale{
		{Status: models.SaleStatusApproved, Price: decimal.RequireFromString("4.50")},
		{Status: models.SaleStatusApproved, Price: decimal.RequireFromString("6.00")},
		{Status: models.SaleStatusPending, Price: decimal.RequireFromString("7.50")},
		{Status: models.SaleStatusExpired, Price: decimal.RequireFromString("7.50")},
	}
	costs := []models.Cost{
		{Value: decimal.RequireFromString("12.00")},
		{Value: decimal.RequireFromString("0.10")},
	}

	totals := Totals(sales, costs)
	assert.Equal(t, "10.50", totals.Revenue.StringFixed(2))
	assert.Equal(t, "12.10", totals.Costs.StringFixed(2))
	assert.Equal(t, "-1.60", totals.Profit.StringFixed(2))
	assert.Equal(t, 2, totals.ApprovedSales)
	assert.Equal(t, 1, totals.PendingSales)
}

func TestSnapshot(t *testing.T) {
	db, err := repositories.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, repositories.Migrate(db))
	require.NoError(t, repositories.Seed(db))
	ctx := context.Background()

	sales := repositories.NewSaleRepository(db)
	pending := &models.Sale{DosageID: 1, DosageName: "Expresso Clássico", Price: decimal.RequireFromString("4.50"), ExternalReference: "smartcoffee-sale-1", IdempotencyKey: "a"}
	require.NoError(t, sales.CreateProvisional(ctx, pending))
	require.NoError(t, sales.Promote(ctx, pending.ID, 1, "qr", "b64"))
	hidden := &models.Sale{DosageID: 1, DosageName: "Expresso Clássico", Price: decimal.RequireFromString("4.50"), ExternalReference: "smartcoffee-sale-2", IdempotencyKey: "b"}
	require.NoError(t, sales.CreateProvisional(ctx, hidden))

	svc := NewService(
		repositories.NewConfigRepository(db),
		repositories.NewDosageRepository(db),
		repositories.NewInventoryRepository(db),
		repositories.NewCostRepository(db),
		sales,
	)

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Config, 3)
	assert.Len(t, snap.Dosages, 3)
	assert.IsType(t, &models.Inventory{}, snap.Inventory)
	require.Len(t, snap.Sales, 1)
	assert.Equal(t, "smartcoffee-sale-1", snap.Sales[0].ExternalReference)
	assert.Equal(t, 1, snap.Totals.PendingSales)
	assert.True(t, snap.Totals.Revenue.IsZero())
}

func TestSnapshot_EmptyInventory(t *testing.T) {
	db, err := repositories.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, repositories.Migrate(db))

	svc := NewService(
		repositories.NewConfigRepository(db),
		repositories.NewDosageRepository(db),
		repositories.NewInventoryRepository(db),
		repositories.NewCostRepository(db),
		repositories.NewSaleRepository(db),
	)
	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, struct{}{}, snap.Inventory)
	assert.Empty(t, snap.Sales)
}
