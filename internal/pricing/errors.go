package pricing

import (
	"errors"
	"fmt"
)

var (
	// ErrQuoteNotReady is returned while inputs are incomplete (no office,
	// no category, missing or inverted dates). It is not a failure.
	ErrQuoteNotReady = errors.New("pricing: quote not ready")

	ErrNoMatchingTier       = errors.New("pricing: no pricing tier matches duration")
	ErrTierOverlap          = errors.New("pricing: pricing tiers overlap")
	ErrTierGap              = errors.New("pricing: gap between pricing tiers")
	ErrInvalidTier          = errors.New("pricing: invalid pricing tier")
	ErrInvalidTime          = errors.New("pricing: invalid time of day")
	ErrInvalidDate          = errors.New("pricing: invalid date")
	ErrDuplicateWorkingDay  = errors.New("pricing: duplicate working day")
	ErrUnknownWeekday       = errors.New("pricing: unknown weekday")
	ErrUnknownExtensionRule = errors.New("pricing: invalid extension rule")
	ErrInvalidInterval      = errors.New("pricing: invalid reserved interval")

	ErrUnknownAddOn      = errors.New("pricing: unknown add-on")
	ErrAddOnTierMissing  = errors.New("pricing: no add-on tier covers rental days")
	ErrAddOnTierIndex    = errors.New("pricing: selected add-on tier does not exist")
	ErrAddOnTypeTaken    = errors.New("pricing: another add-on of the same type is selected")
	ErrInvalidPercentage = errors.New("pricing: invalid percentage")
)

// ConfigError marks a pricing failure caused by bad catalog data rather than
// by the customer's input. Callers show "pricing unavailable" for it.
type ConfigError struct {
	Detail string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Detail)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configErrorf(err error, format string, args ...any) *ConfigError {
	return &ConfigError{Detail: fmt.Sprintf(format, args...), Err: err}
}

// IsConfigError reports whether err is (or wraps) a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
