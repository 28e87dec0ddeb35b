package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"vanrent/internal/models"
	"vanrent/internal/pricing"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Catalog is the set of records quotes are computed from. It is produced by
// the booking backend and delivered as a file.
type Catalog struct {
	Offices    []models.Office   `json:"offices" yaml:"offices" toml:"offices"`
	Categories []models.Category `json:"categories" yaml:"categories" toml:"categories"`
	AddOns     []models.AddOn    `json:"addOns" yaml:"add_ons" toml:"add_ons"`
	Discounts  []models.Discount `json:"discounts" yaml:"discounts" toml:"discounts"`
}

// LoadCatalog reads a catalog file; the format follows the extension
// (.yaml/.yml, .toml, .json).
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cat, err := ParseCatalog(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return cat, nil
}

// ParseCatalog decodes and validates catalog data of the given format.
func ParseCatalog(data []byte, format string) (*Catalog, error) {
	var cat Catalog

	switch strings.TrimPrefix(strings.ToLower(format), ".") {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &cat); err != nil {
			return nil, err
		}
	case "toml":
		if _, err := toml.Decode(string(data), &cat); err != nil {
			return nil, err
		}
	case "json":
		if err := json.Unmarshal(data, &cat); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", format)
	}

	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return &cat, nil
}

func (c *Catalog) Validate() error {
	officeIDs := make(map[string]bool, len(c.Offices))
	for i := range c.Offices {
		o := &c.Offices[i]
		if o.ID == "" {
			return fmt.Errorf("office '%s' has empty ID", o.Name)
		}
		if officeIDs[o.ID] {
			return fmt.Errorf("duplicate office ID found: %s", o.ID)
		}
		officeIDs[o.ID] = true
		if err := pricing.ValidateOffice(o); err != nil {
			return err
		}
	}

	categoryIDs := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		if cat.ID == "" {
			return fmt.Errorf("category '%s' has empty ID", cat.Name)
		}
		if categoryIDs[cat.ID] {
			return fmt.Errorf("duplicate category ID found: %s", cat.ID)
		}
		categoryIDs[cat.ID] = true
		if err := pricing.ValidateTiers(cat.PricingTiers); err != nil {
			return fmt.Errorf("category %s: %w", cat.ID, err)
		}
		if cat.SellOffer != nil && (*cat.SellOffer < 0 || *cat.SellOffer > 100) {
			return fmt.Errorf("category %s: %w: sell offer %g", cat.ID, pricing.ErrInvalidPercentage, *cat.SellOffer)
		}
	}

	addOnIDs := make(map[string]bool, len(c.AddOns))
	for _, a := range c.AddOns {
		if a.ID == "" {
			return fmt.Errorf("add-on '%s' has empty ID", a.Name)
		}
		if addOnIDs[a.ID] {
			return fmt.Errorf("duplicate add-on ID found: %s", a.ID)
		}
		addOnIDs[a.ID] = true
		if err := validateAddOn(a); err != nil {
			return err
		}
	}

	codes := make(map[string]bool, len(c.Discounts))
	for _, d := range c.Discounts {
		code := strings.ToLower(d.Code)
		if code == "" {
			return fmt.Errorf("discount with empty code")
		}
		if codes[code] {
			return fmt.Errorf("duplicate discount code found: %s", d.Code)
		}
		codes[code] = true
		if d.Percentage <= 0 || d.Percentage > 100 {
			return fmt.Errorf("discount %s: %w: %g", d.Code, pricing.ErrInvalidPercentage, d.Percentage)
		}
		if d.ValidTo.Before(d.ValidFrom) {
			return fmt.Errorf("discount %s: valid_to before valid_from", d.Code)
		}
	}
	return nil
}

func validateAddOn(a models.AddOn) error {
	switch a.PricingType {
	case models.PricingFlat:
		if a.Amount < 0 {
			return fmt.Errorf("add-on %s: negative amount", a.ID)
		}
	case models.PricingTiered:
		if len(a.Tiers) == 0 {
			return fmt.Errorf("add-on %s: tiered pricing without tiers", a.ID)
		}
		for i, t := range a.Tiers {
			if t.MinDays < 0 || t.MaxDays < t.MinDays || t.Price < 0 {
				return fmt.Errorf("add-on %s: invalid tier %d", a.ID, i)
			}
		}
	default:
		return fmt.Errorf("add-on %s: unknown pricing type %q", a.ID, a.PricingType)
	}
	return nil
}

func (c *Catalog) Office(id string) (models.Office, bool) {
	for _, o := range c.Offices {
		if o.ID == id {
			return o, true
		}
	}
	return models.Office{}, false
}

func (c *Catalog) Category(id string) (models.Category, bool) {
	for _, cat := range c.Categories {
		if cat.ID == id {
			return cat, true
		}
	}
	return models.Category{}, false
}

func (c *Catalog) AddOn(id string) (models.AddOn, bool) {
	for _, a := range c.AddOns {
		if a.ID == id {
			return a, true
		}
	}
	return models.AddOn{}, false
}
