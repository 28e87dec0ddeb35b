package pricing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"vanrent/internal/models"
)

// Reason explains why a discount code was rejected.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonNotFound         Reason = "not_found"
	ReasonOutsideValidity  Reason = "outside_validity"
	ReasonUsageLimit       Reason = "usage_limit_reached"
	ReasonAlreadyUsed      Reason = "already_used"
	ReasonCategoryExcluded Reason = "category_not_eligible"
)

var reasonMessages = map[Reason]string{
	ReasonNotFound:         "This discount code does not exist.",
	ReasonOutsideValidity:  "This discount code is not valid on the current date.",
	ReasonUsageLimit:       "This discount code has reached its usage limit.",
	ReasonAlreadyUsed:      "You have already used this discount code.",
	ReasonCategoryExcluded: "This discount code does not apply to the selected vehicle category.",
}

// Message is the user-visible text for r.
func (r Reason) Message() string {
	return reasonMessages[r]
}

// DiscountContext is who is redeeming a code, for what, and when.
type DiscountContext struct {
	CustomerID string
	CategoryID string
	Now        time.Time
}

// Eligibility is the outcome of one code lookup.
type Eligibility struct {
	Code       string  `json:"code"`
	Valid      bool    `json:"valid"`
	Reason     Reason  `json:"reason,omitempty"`
	Message    string  `json:"message,omitempty"`
	Percentage float64 `json:"percentage,omitempty"`
}

func rejected(code string, r Reason) Eligibility {
	return Eligibility{Code: code, Reason: r, Message: r.Message()}
}

// ValidateDiscount looks code up (case-insensitive) and checks, in order,
// the validity window, the usage limit, prior use by the customer and the
// category restriction. The first failing check decides the reason.
func ValidateDiscount(code string, ctx DiscountContext, discounts []models.Discount) Eligibility {
	code = strings.TrimSpace(code)

	var d *models.Discount
	for i := range discounts {
		if code != "" && strings.EqualFold(discounts[i].Code, code) {
			d = &discounts[i]
			break
		}
	}
	if d == nil {
		return rejected(code, ReasonNotFound)
	}

	if ctx.Now.Before(d.ValidFrom) || ctx.Now.After(d.ValidTo) {
		return rejected(d.Code, ReasonOutsideValidity)
	}

	if d.UsageLimit != nil && d.UsageCount >= *d.UsageLimit {
		return rejected(d.Code, ReasonUsageLimit)
	}

	if ctx.CustomerID != "" {
		for _, id := range d.UsedBy {
			if id == ctx.CustomerID {
				return rejected(d.Code, ReasonAlreadyUsed)
			}
		}
	}

	if len(d.Categories) > 0 {
		eligible := false
		for _, c := range d.Categories {
			if c == ctx.CategoryID {
				eligible = true
				break
			}
		}
		if !eligible {
			return rejected(d.Code, ReasonCategoryExcluded)
		}
	}

	return Eligibility{Code: d.Code, Valid: true, Percentage: d.Percentage}
}

// ApplyCodeDiscount takes percentage off subtotal. Both results are rounded
// to cents and the discount never exceeds the subtotal.
func ApplyCodeDiscount(subtotal decimal.Decimal, percentage float64) (discountAmount, finalTotal decimal.Decimal) {
	pct := decimal.NewFromFloat(percentage)
	if pct.IsNegative() {
		pct = decimal.Zero
	}

	discountAmount = subtotal.Mul(pct).Div(decimal.NewFromInt(100)).Round(2)
	if discountAmount.GreaterThan(subtotal) {
		discountAmount = subtotal
	}
	return discountAmount, subtotal.Sub(discountAmount).Round(2)
}
