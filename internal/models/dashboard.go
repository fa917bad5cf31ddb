package models

import "github.com/shopspring/decimal"

// DashboardTotals are the aggregates shown on the admin financial tab.
type DashboardTotals struct {
	Revenue       decimal.Decimal `json:"revenue"`
	Costs         decimal.Decimal `json:"costs"`
	Profit        decimal.Decimal `json:"profit"`
	ApprovedSales int             `json:"approvedSales"`
	PendingSales  int             `json:"pendingSales"`
}

// DashboardSnapshot is the full admin view returned by GET /admin/dashboard.
type DashboardSnapshot struct {
	Config    []ConfigEntry   `json:"config"`
	Dosages   []Dosage        `json:"dosages"`
	Inventory interface{}     `json:"inventory"`
	Costs     []Cost          `json:"costs"`
	Sales     []Sale          `json:"sales"`
	Totals    DashboardTotals `json:"totals"`
}
