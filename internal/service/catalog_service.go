package service

import (
	"fmt"
	"sync"
	"time"

	"vanrent/internal/config"
	"vanrent/internal/models"

	"github.com/rs/zerolog"
)

// CatalogService holds the current catalog. Readers get copies, so a
// reload never changes a quote in flight.
type CatalogService struct {
	mu       sync.RWMutex
	catalog  *config.Catalog
	loadedAt time.Time
	logger   *zerolog.Logger
}

func NewCatalogService(catalog *config.Catalog, logger *zerolog.Logger) *CatalogService {
	if catalog == nil {
		catalog = &config.Catalog{}
	}
	return &CatalogService{
		catalog:  catalog,
		loadedAt: time.Now(),
		logger:   logger,
	}
}

// Refresh validates and swaps in a new catalog. An invalid catalog is
// rejected and the previous one stays.
func (s *CatalogService) Refresh(catalog *config.Catalog) error {
	if catalog == nil {
		return fmt.Errorf("%w: nil catalog", ErrInvalidRequest)
	}
	if err := catalog.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.catalog = catalog
	s.loadedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info().
		Int("offices", len(catalog.Offices)).
		Int("categories", len(catalog.Categories)).
		Int("add_ons", len(catalog.AddOns)).
		Int("discounts", len(catalog.Discounts)).
		Msg("catalog refreshed")
	return nil
}

func (s *CatalogService) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

func (s *CatalogService) Office(id string) (models.Office, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	office, ok := s.catalog.Office(id)
	if !ok {
		return models.Office{}, fmt.Errorf("%w: %s", ErrUnknownOffice, id)
	}
	return office, nil
}

func (s *CatalogService) Category(id string) (models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	category, ok := s.catalog.Category(id)
	if !ok {
		return models.Category{}, fmt.Errorf("%w: %s", ErrUnknownCategory, id)
	}
	return category, nil
}

func (s *CatalogService) Offices() []models.Office {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Office(nil), s.catalog.Offices...)
}

func (s *CatalogService) Categories() []models.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Category(nil), s.catalog.Categories...)
}

func (s *CatalogService) AddOns() []models.AddOn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.AddOn(nil), s.catalog.AddOns...)
}

// Discounts returns deep enough copies that callers may append to UsedBy.
func (s *CatalogService) Discounts() []models.Discount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Discount, len(s.catalog.Discounts))
	for i, d := range s.catalog.Discounts {
		d.UsedBy = append([]string(nil), d.UsedBy...)
		out[i] = d
	}
	return out
}
