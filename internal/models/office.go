package models

// Office is a rental location with its weekly schedule and per-date overrides.
type Office struct {
	ID          string       `json:"_id" yaml:"id" toml:"id"`
	Name        string       `json:"name" yaml:"name" toml:"name"`
	Address     string       `json:"address,omitempty" yaml:"address" toml:"address"`
	WorkingTime []WorkingDay `json:"workingTime" yaml:"working_time" toml:"working_time"`
	SpecialDays []SpecialDay `json:"specialDays" yaml:"special_days" toml:"special_days"`
}

// WorkingDay describes normal opening hours for one weekday ("Monday", ...).
type WorkingDay struct {
	Day             string         `json:"day" yaml:"day" toml:"day"`
	IsOpen          bool           `json:"isOpen" yaml:"is_open" toml:"is_open"`
	StartTime       string         `json:"startTime" yaml:"start_time" toml:"start_time"`
	EndTime         string         `json:"endTime" yaml:"end_time" toml:"end_time"`
	PickupExtension *ExtensionRule `json:"pickupExtension,omitempty" yaml:"pickup_extension" toml:"pickup_extension"`
	ReturnExtension *ExtensionRule `json:"returnExtension,omitempty" yaml:"return_extension" toml:"return_extension"`
}

// SpecialDay overrides the weekday rule for a single calendar date.
// Month is 1-12.
type SpecialDay struct {
	Month     int    `json:"month" yaml:"month" toml:"month"`
	Day       int    `json:"day" yaml:"day" toml:"day"`
	IsOpen    bool   `json:"isOpen" yaml:"is_open" toml:"is_open"`
	StartTime string `json:"startTime" yaml:"start_time" toml:"start_time"`
	EndTime   string `json:"endTime" yaml:"end_time" toml:"end_time"`
}

// ExtensionRule widens the bookable window around normal hours for a flat fee.
type ExtensionRule struct {
	HoursBefore int     `json:"hoursBefore" yaml:"hours_before" toml:"hours_before"`
	HoursAfter  int     `json:"hoursAfter" yaml:"hours_after" toml:"hours_after"`
	FlatPrice   float64 `json:"flatPrice" yaml:"flat_price" toml:"flat_price"`
}
