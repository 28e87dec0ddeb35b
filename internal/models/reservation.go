package models

import "time"

// Reservation is a booked rental as stored by the reservation store.
type Reservation struct {
	ID           int64            `json:"id"`
	OfficeID     string           `json:"office"`
	CategoryID   string           `json:"category"`
	CustomerID   string           `json:"customer"`
	StartDate    time.Time        `json:"startDate"`
	EndDate      time.Time        `json:"endDate"`
	GearType     string           `json:"gearType,omitempty"`
	Status       string           `json:"status"`
	TotalPrice   float64          `json:"totalPrice"`
	DiscountCode string           `json:"discountCode,omitempty"`
	AddOns       []AddOnSelection `json:"addOns"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`

	// DiscountLimit caps stored redemptions of DiscountCode; nil means unlimited.
	DiscountLimit *int `json:"-"`
}

// ReservedSlot is one entry of the reserved-slots query. Same-day entries
// carry only StartTime/EndTime; range entries also carry dates.
type ReservedSlot struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
	IsSameDay *bool  `json:"isSameDay,omitempty"`
}
