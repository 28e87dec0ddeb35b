package pricing

import (
	"strings"
	"time"

	"vanrent/internal/models"
)

// DayHours are the effective opening hours of an office on one date.
type DayHours struct {
	IsOpen          bool
	Start           TimeOfDay
	End             TimeOfDay
	PickupExtension *models.ExtensionRule
	ReturnExtension *models.ExtensionRule
	// Special is set when a SpecialDay produced these hours.
	Special bool
}

// Extension returns the rule for the given side (models.SidePickup or
// models.SideReturn).
func (h DayHours) Extension(side string) *models.ExtensionRule {
	switch side {
	case models.SidePickup:
		return h.PickupExtension
	case models.SideReturn:
		return h.ReturnExtension
	}
	return nil
}

// Contains reports whether t lies within normal hours, bounds included.
func (h DayHours) Contains(t TimeOfDay) bool {
	return h.IsOpen && t >= h.Start && t <= h.End
}

// ResolveDayHours picks the SpecialDay matching date, falling back to the
// WorkingDay for date's weekday. A date without either is closed.
// Special days carry no extension rules.
func ResolveDayHours(office *models.Office, date time.Time) (DayHours, error) {
	if office == nil {
		return DayHours{}, ErrQuoteNotReady
	}

	for _, sd := range office.SpecialDays {
		if sd.Month == int(date.Month()) && sd.Day == date.Day() {
			if !sd.IsOpen {
				return DayHours{Special: true}, nil
			}
			start, end, err := parseHours(sd.StartTime, sd.EndTime)
			if err != nil {
				return DayHours{}, err
			}
			return DayHours{IsOpen: true, Start: start, End: end, Special: true}, nil
		}
	}

	weekday := date.Weekday().String()
	for _, wd := range office.WorkingTime {
		if !strings.EqualFold(wd.Day, weekday) {
			continue
		}
		if !wd.IsOpen {
			return DayHours{}, nil
		}
		start, end, err := parseHours(wd.StartTime, wd.EndTime)
		if err != nil {
			return DayHours{}, err
		}
		return DayHours{
			IsOpen:          true,
			Start:           start,
			End:             end,
			PickupExtension: wd.PickupExtension,
			ReturnExtension: wd.ReturnExtension,
		}, nil
	}

	return DayHours{}, nil
}

func parseHours(startStr, endStr string) (start, end TimeOfDay, err error) {
	start, err = ParseTimeOfDay(startStr)
	if err != nil {
		return 0, 0, err
	}
	end, err = ParseTimeOfDay(endStr)
	if err != nil {
		return 0, 0, err
	}
	if start > end {
		return 0, 0, configErrorf(ErrInvalidTime, "opening %s after closing %s", startStr, endStr)
	}
	return start, end, nil
}

var weekdays = map[string]bool{
	"sunday": true, "monday": true, "tuesday": true, "wednesday": true,
	"thursday": true, "friday": true, "saturday": true,
}

// ValidateOffice checks the schedule: known weekday names at most once each,
// parseable hours on open days, sane special-day dates and extension rules.
func ValidateOffice(office *models.Office) error {
	seen := make(map[string]bool, len(office.WorkingTime))
	for _, wd := range office.WorkingTime {
		name := strings.ToLower(wd.Day)
		if !weekdays[name] {
			return configErrorf(ErrUnknownWeekday, "office %s: %q", office.ID, wd.Day)
		}
		if seen[name] {
			return configErrorf(ErrDuplicateWorkingDay, "office %s: %s", office.ID, wd.Day)
		}
		seen[name] = true

		if !wd.IsOpen {
			continue
		}
		if _, _, err := parseHours(wd.StartTime, wd.EndTime); err != nil {
			return err
		}
		for _, rule := range []*models.ExtensionRule{wd.PickupExtension, wd.ReturnExtension} {
			if err := validateExtensionRule(rule); err != nil {
				return configErrorf(ErrUnknownExtensionRule, "office %s %s: %v", office.ID, wd.Day, err)
			}
		}
	}

	for _, sd := range office.SpecialDays {
		if sd.Month < 1 || sd.Month > 12 || sd.Day < 1 || sd.Day > 31 {
			return configErrorf(ErrInvalidDate, "office %s: special day %02d-%02d", office.ID, sd.Month, sd.Day)
		}
		if !sd.IsOpen {
			continue
		}
		if _, _, err := parseHours(sd.StartTime, sd.EndTime); err != nil {
			return err
		}
	}
	return nil
}
