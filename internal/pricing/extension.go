package pricing

import (
	"errors"
	"time"

	"vanrent/internal/models"
)

// Slot is a bookable time of day with the extension fee it would incur.
type Slot struct {
	Time         TimeOfDay `json:"time"`
	ExtensionFee float64   `json:"extensionFee"`
}

func validateExtensionRule(rule *models.ExtensionRule) error {
	if rule == nil {
		return nil
	}
	if rule.HoursBefore < 0 || rule.HoursAfter < 0 || rule.HoursBefore > 24 || rule.HoursAfter > 24 {
		return errors.New("hours out of range")
	}
	if rule.FlatPrice < 0 {
		return errors.New("negative flat price")
	}
	return nil
}

// Window returns the widened window for hours under rule, clamped to the
// calendar day. Without a rule it equals normal hours. The widened bounds
// themselves are not bookable, see inExtensionBand.
func Window(hours DayHours, rule *models.ExtensionRule) (from, to TimeOfDay) {
	if rule == nil {
		return hours.Start, hours.End
	}
	from = clampTimeOfDay(int(hours.Start) - rule.HoursBefore*60)
	to = clampTimeOfDay(int(hours.End) + rule.HoursAfter*60)
	return from, to
}

// inExtensionBand reports whether candidate lies outside normal hours and
// strictly inside (start - hoursBefore, end + hoursAfter).
func inExtensionBand(hours DayHours, rule *models.ExtensionRule, candidate TimeOfDay) bool {
	if rule == nil || !hours.IsOpen || hours.Contains(candidate) {
		return false
	}
	from := int(hours.Start) - rule.HoursBefore*60
	to := int(hours.End) + rule.HoursAfter*60
	return int(candidate) > from && int(candidate) < to
}

// ResolveExtensionFee returns rule.FlatPrice when candidate lies outside
// normal hours but strictly inside the widened window, and 0 otherwise.
func ResolveExtensionFee(hours DayHours, rule *models.ExtensionRule, candidate TimeOfDay) float64 {
	if inExtensionBand(hours, rule, candidate) {
		return rule.FlatPrice
	}
	return 0
}

// BookableSlots lists the slots an office offers for side on date, widened
// by the side's extension rule. Slots outside the widened window, and the
// widened bounds themselves, are never produced, so their fee is never
// resolved.
func BookableSlots(office *models.Office, date time.Time, side string, granularityMinutes int) ([]Slot, error) {
	hours, err := ResolveDayHours(office, date)
	if err != nil {
		return nil, err
	}
	if !hours.IsOpen {
		return []Slot{}, nil
	}

	rule := hours.Extension(side)
	from, to := Window(hours, rule)

	times := GenerateSlots(from, to, granularityMinutes)
	slots := make([]Slot, 0, len(times))
	for _, t := range times {
		if !hours.Contains(t) && !inExtensionBand(hours, rule, t) {
			continue
		}
		slots = append(slots, Slot{Time: t, ExtensionFee: ResolveExtensionFee(hours, rule, t)})
	}
	return slots, nil
}
