package repositories

import (
	"context"

	"smartcoffee/internal/models"

	"gorm.io/gorm"
)

type CostRepository interface {
	List(ctx context.Context) ([]models.Cost, error)
	Create(ctx context.Context, cost *models.Cost) error
	Clear(ctx context.Context) error
}

type costRepository struct {
	db *gorm.DB
}

func NewCostRepository(db *gorm.DB) CostRepository {
	return &costRepository{db: db}
}

func (r *costRepository) List(ctx context.Context) ([]models.Cost, error) {
	costs := []models.Cost{}
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&costs).Error
	return costs, err
}

func (r *costRepository) Create(ctx context.Context, cost *models.Cost) error {
	return r.db.WithContext(ctx).Create(cost).Error
}

func (r *costRepository) Clear(ctx context.Context) error {
	return r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Cost{}).Error
}
