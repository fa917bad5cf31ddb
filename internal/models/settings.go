package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Recognized configuration keys.
const (
	ConfigBannerURL      = "banner_url"
	ConfigWaterCapacity  = "machine_water_capacity_ml"
	ConfigCoffeeCapacity = "machine_coffee_capacity_g"
)

// ConfigEntry is one row of the key/value config table.
type ConfigEntry struct {
	Key   string `gorm:"primaryKey;size:255" json:"key"`
	Value string `gorm:"type:text" json:"value"`
}

func (ConfigEntry) TableName() string { return "config" }

// Inventory is the singleton stock row. It is only changed by admin refills.
type Inventory struct {
	ID          uint            `gorm:"primarykey" json:"id"`
	CoffeeGrams decimal.Decimal `gorm:"type:decimal(10,2)" json:"coffee_grams"`
	WaterML     decimal.Decimal `gorm:"column:water_ml;type:decimal(10,2)" json:"water_ml"`
}

func (Inventory) TableName() string { return "inventory" }

// InventoryID is the primary key of the singleton inventory row.
const InventoryID = 1

// Cost is a free-form ledger entry.
type Cost struct {
	ID        uint            `gorm:"primarykey" json:"id"`
	Name      string          `gorm:"size:255;not null" json:"name"`
	Value     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"value"`
	CreatedAt time.Time       `gorm:"index" json:"created_at"`
}
