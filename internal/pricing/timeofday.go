package pricing

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time expressed in minutes since midnight.
type TimeOfDay int

const (
	minutesPerDay = 24 * 60
	lastMinute    = TimeOfDay(minutesPerDay - 1)
)

// ParseTimeOfDay parses "HH:MM" (00:00-23:59).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, configErrorf(ErrInvalidTime, "%q", s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, configErrorf(ErrInvalidTime, "%q: bad hour", s)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 || len(parts[1]) != 2 {
		return 0, configErrorf(ErrInvalidTime, "%q: bad minute", s)
	}

	return TimeOfDay(hour*60 + minute), nil
}

// TimeOfDayOf extracts the wall-clock time of ts, dropping seconds.
func TimeOfDayOf(ts time.Time) TimeOfDay {
	return TimeOfDay(ts.Hour()*60 + ts.Minute())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// On places t on the calendar day of date, in date's location.
func (t TimeOfDay) On(date time.Time) time.Time {
	return startOfDay(date).Add(time.Duration(t) * time.Minute)
}

func startOfDay(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, date.Location())
}

func clampTimeOfDay(minutes int) TimeOfDay {
	if minutes < 0 {
		return 0
	}
	if minutes > int(lastMinute) {
		return lastMinute
	}
	return TimeOfDay(minutes)
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(data []byte) error {
	parsed, err := ParseTimeOfDay(string(data))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
