package pricing

import (
	"strings"
	"time"

	"vanrent/internal/models"
)

// Interval is a busy period [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains uses half-open semantics: t == End is outside.
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

// Overlaps reports whether [start, end) shares any instant with i.
func (i Interval) Overlaps(start, end time.Time) bool {
	return start.Before(i.End) && i.Start.Before(end)
}

// NormalizeReserved turns both reserved-slot shapes into intervals clipped
// to the calendar day of date:
//   - {startTime, endTime}, or isSameDay: [startTime, endTime) on its day;
//   - {startDate, endDate, ...}: [startDate startTime, endDate endTime)
//     intersected with the day.
//
// Entries that do not touch the day are dropped.
func NormalizeReserved(date time.Time, slots []models.ReservedSlot) ([]Interval, error) {
	dayStart := startOfDay(date)
	dayEnd := dayStart.AddDate(0, 0, 1)
	loc := date.Location()

	out := make([]Interval, 0, len(slots))
	for _, rs := range slots {
		startTOD, err := ParseTimeOfDay(rs.StartTime)
		if err != nil {
			return nil, err
		}
		endTOD, err := ParseTimeOfDay(rs.EndTime)
		if err != nil {
			return nil, err
		}

		startDay, endDay := dayStart, dayStart
		if rs.StartDate != "" {
			if startDay, err = parseDate(rs.StartDate, loc); err != nil {
				return nil, err
			}
			endDay = startDay
			sameDay := rs.IsSameDay != nil && *rs.IsSameDay
			if rs.EndDate != "" && !sameDay {
				if endDay, err = parseDate(rs.EndDate, loc); err != nil {
					return nil, err
				}
			}
		}

		iv := Interval{Start: startTOD.On(startDay), End: endTOD.On(endDay)}
		if iv.End.Before(iv.Start) {
			return nil, configErrorf(ErrInvalidInterval, "%s %s - %s %s", rs.StartDate, rs.StartTime, rs.EndDate, rs.EndTime)
		}

		if iv.Start.Before(dayStart) {
			iv.Start = dayStart
		}
		if iv.End.After(dayEnd) {
			iv.End = dayEnd
		}
		if !iv.Start.Before(iv.End) {
			continue
		}
		out = append(out, iv)
	}
	return out, nil
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	if len(s) > len(models.DateFormat) && strings.Contains(s, "T") {
		s = s[:len(models.DateFormat)]
	}
	d, err := time.ParseInLocation(models.DateFormat, s, loc)
	if err != nil {
		return time.Time{}, configErrorf(ErrInvalidDate, "%q", s)
	}
	return d, nil
}

// IsAvailable reports whether candidate falls outside every reserved interval.
func IsAvailable(candidate time.Time, reserved []Interval) bool {
	for _, iv := range reserved {
		if iv.Contains(candidate) {
			return false
		}
	}
	return true
}

// IsAvailableAsEnd is IsAvailable for the return picker: the candidate must
// also be strictly after the chosen start.
func IsAvailableAsEnd(candidate, chosenStart time.Time, reserved []Interval) bool {
	return candidate.After(chosenStart) && IsAvailable(candidate, reserved)
}

// SpanFree reports whether [start, end) avoids every reserved interval.
func SpanFree(start, end time.Time, reserved []Interval) bool {
	for _, iv := range reserved {
		if iv.Overlaps(start, end) {
			return false
		}
	}
	return true
}

// SlotState is a bookable slot with its availability.
type SlotState struct {
	Slot
	Available bool `json:"available"`
}

// FilterSlots marks each slot on date against reserved. When chosenStart is
// non-zero the end-picker rule applies.
func FilterSlots(date time.Time, slots []Slot, reserved []Interval, chosenStart time.Time) []SlotState {
	out := make([]SlotState, len(slots))
	for i, s := range slots {
		at := s.Time.On(date)
		available := IsAvailable(at, reserved)
		if !chosenStart.IsZero() {
			available = IsAvailableAsEnd(at, chosenStart, reserved)
		}
		out[i] = SlotState{Slot: s, Available: available}
	}
	return out
}
