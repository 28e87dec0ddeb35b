package service

import "errors"

var (
	ErrUnknownOffice   = errors.New("service: unknown office")
	ErrUnknownCategory = errors.New("service: unknown category")
	ErrInvalidRequest  = errors.New("service: invalid request")

	// ErrSlotUnavailable возвращается, если выбранный интервал уже занят или не предлагается
	ErrSlotUnavailable = errors.New("service: slot unavailable")

	// ErrQuoteFailed означает ошибку конфигурации каталога при расчёте
	ErrQuoteFailed = errors.New("service: quote could not be computed")

	ErrDiscountRejected = errors.New("service: discount code rejected")
	ErrRateLimited      = errors.New("service: too many attempts")
)
