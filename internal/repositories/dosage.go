package repositories

import (
	"context"
	"errors"

	"smartcoffee/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DosageRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Dosage, error)
	ListActive(ctx context.Context) ([]models.Dosage, error)
	ListAll(ctx context.Context) ([]models.Dosage, error)
	Upsert(ctx context.Context, dosages []models.Dosage) error
}

type dosageRepository struct {
	db *gorm.DB
}

func NewDosageRepository(db *gorm.DB) DosageRepository {
	return &dosageRepository{db: db}
}

func (r *dosageRepository) GetByID(ctx context.Context, id uint) (*models.Dosage, error) {
	var d models.Dosage
	if err := r.db.WithContext(ctx).First(&d, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDosageNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *dosageRepository) ListActive(ctx context.Context) ([]models.Dosage, error) {
	dosages := []models.Dosage{}
	err := r.db.WithContext(ctx).Where("active = ?", true).Order("id").Find(&dosages).Error
	return dosages, err
}

func (r *dosageRepository) ListAll(ctx context.Context) ([]models.Dosage, error) {
	dosages := []models.Dosage{}
	err := r.db.WithContext(ctx).Order("id").Find(&dosages).Error
	return dosages, err
}

// Upsert writes every dosage by id. Entries without an id are inserted.
func (r *dosageRepository) Upsert(ctx context.Context, dosages []models.Dosage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range dosages {
			d := dosages[i]
			if d.ID == 0 {
				if err := tx.Create(&d).Error; err != nil {
					return err
				}
				continue
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "ml", "price", "time_s", "active"}),
			}).Create(&d).Error
			if err != nil {
				return err
			}
		}
		return syncSequence(tx, "dosages")
	})
}
