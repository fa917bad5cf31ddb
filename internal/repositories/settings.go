package repositories

import (
	"context"
	"errors"

	"smartcoffee/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConfigRepository interface {
	All(ctx context.Context) ([]models.ConfigEntry, error)
	Get(ctx context.Context, key string) (string, bool, error)
	SetMany(ctx context.Context, values map[string]string) error
}

type configRepository struct {
	db *gorm.DB
}

func NewConfigRepository(db *gorm.DB) ConfigRepository {
	return &configRepository{db: db}
}

func (r *configRepository) All(ctx context.Context) ([]models.ConfigEntry, error) {
	entries := []models.ConfigEntry{}
	err := r.db.WithContext(ctx).Order(clause.OrderByColumn{Column: clause.Column{Name: "key"}}).Find(&entries).Error
	return entries, err
}

func (r *configRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var entry models.ConfigEntry
	err := r.db.WithContext(ctx).Where(map[string]interface{}{"key": key}).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return entry.Value, true, nil
}

func (r *configRepository) SetMany(ctx context.Context, values map[string]string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for k, v := range values {
			entry := models.ConfigEntry{Key: k, Value: v}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value"}),
			}).Create(&entry).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

type InventoryRepository interface {
	Get(ctx context.Context) (*models.Inventory, error)
	Save(ctx context.Context, waterML, coffeeGrams decimal.Decimal) error
}

type inventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

// Get returns the singleton row, or nil when the machine was never stocked.
func (r *inventoryRepository) Get(ctx context.Context) (*models.Inventory, error) {
	var inv models.Inventory
	err := r.db.WithContext(ctx).Order("id").First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *inventoryRepository) Save(ctx context.Context, waterML, coffeeGrams decimal.Decimal) error {
	inv := models.Inventory{ID: models.InventoryID, WaterML: waterML, CoffeeGrams: coffeeGrams}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"water_ml", "coffee_grams"}),
	}).Create(&inv).Error
}
