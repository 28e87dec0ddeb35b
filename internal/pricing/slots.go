package pricing

import "vanrent/internal/models"

// GenerateSlots returns the slots from start up to and including end,
// stepped by granularityMinutes. A fresh slice is returned on every call.
func GenerateSlots(start, end TimeOfDay, granularityMinutes int) []TimeOfDay {
	if granularityMinutes <= 0 {
		granularityMinutes = models.DefaultGranularityMinutes
	}
	if start > end {
		return []TimeOfDay{}
	}

	slots := make([]TimeOfDay, 0, int(end-start)/granularityMinutes+1)
	for cursor := start; cursor <= end; cursor += TimeOfDay(granularityMinutes) {
		slots = append(slots, cursor)
	}
	return slots
}

// GenerateSlotStrings is GenerateSlots over "HH:MM" strings.
func GenerateSlotStrings(start, end string, granularityMinutes int) ([]string, error) {
	from, err := ParseTimeOfDay(start)
	if err != nil {
		return nil, err
	}
	to, err := ParseTimeOfDay(end)
	if err != nil {
		return nil, err
	}

	slots := GenerateSlots(from, to, granularityMinutes)
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.String()
	}
	return out, nil
}
