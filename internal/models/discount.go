package models

import "time"

// Discount is a customer-entered promotional code.
type Discount struct {
	Code       string    `json:"code" yaml:"code" toml:"code"`
	Percentage float64   `json:"percentage" yaml:"percentage" toml:"percentage"`
	ValidFrom  time.Time `json:"validFrom" yaml:"valid_from" toml:"valid_from"`
	ValidTo    time.Time `json:"validTo" yaml:"valid_to" toml:"valid_to"`
	UsageLimit *int      `json:"usageLimit,omitempty" yaml:"usage_limit" toml:"usage_limit"`
	UsageCount int       `json:"usageCount" yaml:"usage_count" toml:"usage_count"`
	UsedBy     []string  `json:"usedBy" yaml:"used_by" toml:"used_by"`
	Categories []string  `json:"categories,omitempty" yaml:"categories" toml:"categories"`
}
