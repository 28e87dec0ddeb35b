package export

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"vanrent/internal/models"
	"vanrent/internal/pricing"

	"github.com/xuri/excelize/v2"
)

var ErrNoCategories = errors.New("export: no categories")

const (
	maxSheetName   = 31
	defaultMaxDays = 30
)

var columns = []string{"Days", "Hours", "Tier", "Price per day", "Total (manual)", "Total (automatic)"}

// TariffSheet writes an xlsx workbook with one sheet per category listing
// the rental price for every whole-day duration from 1 to maxDays. Prices
// come from the quote engine, sell-off included.
func TariffSheet(w io.Writer, categories []models.Category, maxDays int, rental pricing.RentalOptions) error {
	if len(categories) == 0 {
		return ErrNoCategories
	}
	if maxDays <= 0 {
		maxDays = defaultMaxDays
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("error creating style: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return fmt.Errorf("error creating style: %w", err)
	}

	used := make(map[string]bool)
	for i, category := range categories {
		name := sheetName(category, used)
		index, err := f.NewSheet(name)
		if err != nil {
			return fmt.Errorf("error creating sheet: %w", err)
		}
		if i == 0 {
			f.SetActiveSheet(index)
		}
		if err := writeCategory(f, name, category, maxDays, rental, headerStyle, moneyStyle); err != nil {
			return fmt.Errorf("category %s: %w", category.ID, err)
		}
	}

	// Удаляем стандартный лист
	if !used["Sheet1"] {
		_ = f.DeleteSheet("Sheet1")
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

func writeCategory(f *excelize.File, sheet string, category models.Category, maxDays int,
	rental pricing.RentalOptions, headerStyle, moneyStyle int) error {
	effective := pricing.ApplySellOffer(category)
	if err := pricing.ValidateTiers(effective.PricingTiers); err != nil {
		return err
	}
	automatic := effective.Gear.Offers(models.GearAutomatic)

	for col, title := range columns {
		if col == len(columns)-1 && !automatic {
			break
		}
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheet, cell, title)
		_ = f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	start := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	for days := 1; days <= maxDays; days++ {
		end := start.Add(time.Duration(days) * 24 * time.Hour)
		price, err := pricing.CalculateRental(start, end, effective.PricingTiers, effective.ExtraHoursRate, rental)
		if err != nil {
			if errors.Is(err, pricing.ErrNoMatchingTier) {
				// тарифная сетка закончилась
				break
			}
			return err
		}
		tier, _ := pricing.FindTier(effective.PricingTiers, price.TotalHours)

		row := days + 1
		values := []any{
			days,
			price.TotalHours,
			fmt.Sprintf("%d-%dh", tier.MinHours, tier.MaxHours),
			price.PricePerDay,
			price.TotalPrice,
		}
		if automatic {
			values = append(values, price.TotalPrice+pricing.GearSurcharge(effective, models.GearAutomatic))
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
		from, _ := excelize.CoordinatesToCellName(4, row)
		to, _ := excelize.CoordinatesToCellName(len(values), row)
		_ = f.SetCellStyle(sheet, from, to, moneyStyle)
	}

	_ = f.SetColWidth(sheet, "A", "B", 10)
	_ = f.SetColWidth(sheet, "C", "C", 14)
	_ = f.SetColWidth(sheet, "D", "F", 18)
	return nil
}

// sheetName derives a unique, valid sheet title from the category.
func sheetName(category models.Category, used map[string]bool) string {
	name := category.Name
	if strings.TrimSpace(name) == "" {
		name = category.ID
	}
	name = strings.NewReplacer(":", "-", "\\", "-", "/", "-", "?", "", "*", "", "[", "(", "]", ")").Replace(name)
	if len([]rune(name)) > maxSheetName {
		name = string([]rune(name)[:maxSheetName])
	}

	base := name
	for i := 2; used[name]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		r := []rune(base)
		if len(r)+len(suffix) > maxSheetName {
			r = r[:maxSheetName-len(suffix)]
		}
		name = string(r) + suffix
	}
	used[name] = true
	return name
}
