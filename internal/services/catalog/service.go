package catalog

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"smartcoffee/internal/models"
	"smartcoffee/internal/repositories"
)

// Service owns the kiosk menu and the admin-managed tables around it.
type Service interface {
	ClientData(ctx context.Context) (*models.ClientData, error)
	SaveConfig(ctx context.Context, req models.ConfigUpdateRequest) error
	SaveDosages(ctx context.Context, dosages []models.Dosage) error
	Refill(ctx context.Context, req models.InventoryUpdateRequest) error
	AddCost(ctx context.Context, req models.CostRequest) (*models.Cost, error)
	ClearCosts(ctx context.Context) error
}

// Cache keeps the public menu warm between catalog writes.
type Cache interface {
	GetClientData(ctx context.Context) (*models.ClientData, bool, error)
	SetClientData(ctx context.Context, data *models.ClientData) error
	InvalidateClientData(ctx context.Context) error
}

type service struct {
	dosages   repositories.DosageRepository
	config    repositories.ConfigRepository
	inventory repositories.InventoryRepository
	costs     repositories.CostRepository
	cache     Cache
}

func NewService(
	dosages repositories.DosageRepository,
	config repositories.ConfigRepository,
	inventory repositories.InventoryRepository,
	costs repositories.CostRepository,
	cache Cache,
) Service {
	return &service{
		dosages:   dosages,
		config:    config,
		inventory: inventory,
		costs:     costs,
		cache:     cache,
	}
}

func (s *service) ClientData(ctx context.Context) (*models.ClientData, error) {
	if data, found, err := s.cache.GetClientData(ctx); err != nil {
		log.Printf("Catalog cache read failed: %v", err)
	} else if found {
		return data, nil
	}

	dosages, err := s.dosages.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list dosages: %w", err)
	}
	banner, _, err := s.config.Get(ctx, models.ConfigBannerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to read banner: %w", err)
	}

	data := &models.ClientData{
		Dosages:   make([]models.KioskDosage, 0, len(dosages)),
		BannerURL: banner,
	}
	for _, d := range dosages {
		data.Dosages = append(data.Dosages, d.ToKiosk())
	}

	if err := s.cache.SetClientData(ctx, data); err != nil {
		log.Printf("Catalog cache write failed: %v", err)
	}
	return data, nil
}

func (s *service) SaveConfig(ctx context.Context, req models.ConfigUpdateRequest) error {
	err := s.config.SetMany(ctx, map[string]string{
		models.ConfigBannerURL:      req.BannerURL,
		models.ConfigWaterCapacity:  strconv.Itoa(req.WaterCapacity),
		models.ConfigCoffeeCapacity: strconv.Itoa(req.CoffeeCapacity),
	})
	if err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	s.invalidate(ctx)
	return nil
}

func (s *service) SaveDosages(ctx context.Context, dosages []models.Dosage) error {
	for i := range dosages {
		dosages[i].Price = dosages[i].Price.Round(2)
	}
	if err := s.dosages.Upsert(ctx, dosages); err != nil {
		return fmt.Errorf("failed to save dosages: %w", err)
	}
	s.invalidate(ctx)
	return nil
}

func (s *service) Refill(ctx context.Context, req models.InventoryUpdateRequest) error {
	if err := s.inventory.Save(ctx, req.WaterML.Round(2), req.CoffeeGrams.Round(2)); err != nil {
		return fmt.Errorf("failed to refill inventory: %w", err)
	}
	return nil
}

func (s *service) AddCost(ctx context.Context, req models.CostRequest) (*models.Cost, error) {
	cost := &models.Cost{Name: req.Name, Value: req.Value.Round(2)}
	if err := s.costs.Create(ctx, cost); err != nil {
		return nil, fmt.Errorf("failed to add cost: %w", err)
	}
	return cost, nil
}

func (s *service) ClearCosts(ctx context.Context) error {
	if err := s.costs.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear costs: %w", err)
	}
	return nil
}

func (s *service) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateClientData(ctx); err != nil {
		log.Printf("Catalog cache invalidation failed: %v", err)
	}
}
