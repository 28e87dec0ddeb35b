package models

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCanceled  = "canceled"
	StatusCompleted = "completed"
)

const (
	SidePickup = "pickup"
	SideReturn = "return"
)

const (
	DateFormat = "2006-01-02"
	TimeFormat = "15:04"
)

const (
	// DefaultGranularityMinutes шаг сетки слотов
	DefaultGranularityMinutes = 15

	// DefaultSlotCacheTTL время жизни кэша занятых слотов в секундах
	DefaultSlotCacheTTL = 5 * 60

	// DiscountAttemptsLimit количество проверок промокода в окне
	DiscountAttemptsLimit = 10

	// DiscountAttemptsWindow окно ограничения проверок промокода в секундах
	DiscountAttemptsWindow = 60

	// CatalogReloadInterval интервал проверки файла каталога в секундах
	CatalogReloadInterval = 30
)

// IsActiveStatus reports whether a reservation with this status blocks its slot.
func IsActiveStatus(status string) bool {
	return status == StatusPending || status == StatusConfirmed
}
