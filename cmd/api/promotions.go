package main

import (
	"os"
	"strings"

	"vanrent/internal/config"
	"vanrent/internal/models"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

// loadPromotions reads seasonal discount codes kept apart from the catalog
// so marketing can edit them without touching rates. An empty path means
// no promotions.
func loadPromotions(path string, logger *zerolog.Logger) ([]models.Discount, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error().Err(err).Str("promotions_path", path).Msg("read promotions")
		return nil, err
	}

	var promotionsConfig struct {
		Discounts []models.Discount `yaml:"discounts"`
	}
	if err := yaml.Unmarshal(data, &promotionsConfig); err != nil {
		logger.Error().Err(err).Str("promotions_path", path).Msg("parse promotions")
		return nil, err
	}

	logger.Info().Int("discounts", len(promotionsConfig.Discounts)).Str("promotions_path", path).Msg("promotions loaded")
	return promotionsConfig.Discounts, nil
}

// mergePromotions appends promotions to a copy of the catalog. A code that
// the catalog already defines keeps the catalog version.
func mergePromotions(catalog *config.Catalog, promotions []models.Discount, logger *zerolog.Logger) *config.Catalog {
	if len(promotions) == 0 {
		return catalog
	}

	merged := *catalog
	merged.Discounts = append([]models.Discount(nil), catalog.Discounts...)

	known := make(map[string]bool, len(merged.Discounts))
	for _, d := range merged.Discounts {
		known[strings.ToUpper(d.Code)] = true
	}
	for _, p := range promotions {
		code := strings.ToUpper(strings.TrimSpace(p.Code))
		if code == "" || known[code] {
			logger.Warn().Str("code", p.Code).Msg("promotion skipped")
			continue
		}
		known[code] = true
		merged.Discounts = append(merged.Discounts, p)
	}
	return &merged
}
