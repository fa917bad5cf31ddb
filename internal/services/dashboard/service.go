package dashboard

import (
	"context"
	"fmt"

	"smartcoffee/internal/models"
	"smartcoffee/internal/repositories"

	"github.com/shopspring/decimal"
)

type Service interface {
	Snapshot(ctx context.Context) (*models.DashboardSnapshot, error)
}

type service struct {
	config    repositories.ConfigRepository
	dosages   repositories.DosageRepository
	inventory repositories.InventoryRepository
	costs     repositories.CostRepository
	sales     repositories.SaleRepository
}

func NewService(
	config repositories.ConfigRepository,
	dosages repositories.DosageRepository,
	inventory repositories.InventoryRepository,
	costs repositories.CostRepository,
	sales repositories.SaleRepository,
) Service {
	return &service{
		config:    config,
		dosages:   dosages,
		inventory: inventory,
		costs:     costs,
		sales:     sales,
	}
}

func (s *service) Snapshot(ctx context.Context) (*models.DashboardSnapshot, error) {
	config, err := s.config.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	dosages, err := s.dosages.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load dosages: %w", err)
	}
	inv, err := s.inventory.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory: %w", err)
	}
	costs, err := s.costs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load costs: %w", err)
	}
	sales, err := s.sales.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load sales: %w", err)
	}

	snapshot := &models.DashboardSnapshot{
		Config:    config,
		Dosages:   dosages,
		Inventory: struct{}{},
		Costs:     costs,
		Sales:     make([]models.Sale, 0, len(sales)),
		Totals:    Totals(sales, costs),
	}
	if inv != nil {
		snapshot.Inventory = inv
	}
	// Reservations without a charge are internal bookkeeping.
	for _, sale := range sales {
		if sale.Status != models.SaleStatusProvisional {
			snapshot.Sales = append(snapshot.Sales, sale)
		}
	}
	return snapshot, nil
}

// Totals sums approved revenue against every recorded cost.
func Totals(sales []models.Sale, costs []models.Cost) models.DashboardTotals {
	totals := models.DashboardTotals{
		Revenue: decimal.Zero,
		Costs:   decimal.Zero,
	}
	for _, sale := range sales {
		switch sale.Status {
		case models.SaleStatusApproved:
			totals.Revenue = totals.Revenue.Add(sale.Price)
			totals.ApprovedSales++
		case models.SaleStatusPending:
			totals.PendingSales++
		}
	}
	for _, cost := range costs {
		totals.Costs = totals.Costs.Add(cost.Value)
	}
	totals.Profit = totals.Revenue.Sub(totals.Costs)
	return totals
}
