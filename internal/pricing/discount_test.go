package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"vanrent/internal/models"
)

func testDiscounts() []models.Discount {
	return []models.Discount{
		{
			Code:       "SPRING20",
			Percentage: 20,
			ValidFrom:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			ValidTo:    time.Date(2026, 5, 31, 23, 59, 59, 0, time.UTC),
			UsageLimit: intPtr(100),
			UsageCount: 3,
			UsedBy:     []string{"cust-used"},
		},
		{
			Code:       "FULL",
			Percentage: 10,
			ValidFrom:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			ValidTo:    time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
			UsageLimit: intPtr(5),
			UsageCount: 5,
		},
		{
			Code:       "VANSONLY",
			Percentage: 15,
			ValidFrom:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			ValidTo:    time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
			Categories: []string{"cat-van"},
		},
	}
}

func TestValidateDiscount(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		code string
		ctx  DiscountContext
		want Reason
	}{
		{"valid", "SPRING20", DiscountContext{CustomerID: "cust-1", CategoryID: "cat-van", Now: now}, ReasonNone},
		{"case insensitive", "spring20", DiscountContext{CustomerID: "cust-1", CategoryID: "cat-van", Now: now}, ReasonNone},
		{"not found", "WINTER", DiscountContext{Now: now}, ReasonNotFound},
		{"empty", "", DiscountContext{Now: now}, ReasonNotFound},
		{"before window", "SPRING20", DiscountContext{Now: time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)}, ReasonOutsideValidity},
		{"after window", "SPRING20", DiscountContext{Now: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)}, ReasonOutsideValidity},
		{"limit reached", "FULL", DiscountContext{CustomerID: "cust-1", Now: now}, ReasonUsageLimit},
		{"already used", "SPRING20", DiscountContext{CustomerID: "cust-used", CategoryID: "cat-van", Now: now}, ReasonAlreadyUsed},
		{"category excluded", "VANSONLY", DiscountContext{CustomerID: "cust-1", CategoryID: "cat-car", Now: now}, ReasonCategoryExcluded},
		{"category allowed", "VANSONLY", DiscountContext{CustomerID: "cust-1", CategoryID: "cat-van", Now: now}, ReasonNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateDiscount(tt.code, tt.ctx, testDiscounts())
			assert.Equal(t, tt.want, got.Reason)
			assert.Equal(t, tt.want == ReasonNone, got.Valid)
			if tt.want != ReasonNone {
				assert.NotEmpty(t, got.Message)
				assert.Zero(t, got.Percentage)
			}
		})
	}
}

func TestValidateDiscount_OrderShortCircuits(t *testing.T) {
	// Expired, exhausted, used and excluded at once: the window check wins.
	d := []models.Discount{{
		Code:       "ALLBAD",
		Percentage: 50,
		ValidFrom:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		ValidTo:    time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		UsageLimit: intPtr(1),
		UsageCount: 1,
		UsedBy:     []string{"cust-1"},
		Categories: []string{"other"},
	}}
	got := ValidateDiscount("ALLBAD", DiscountContext{CustomerID: "cust-1", CategoryID: "cat-van", Now: monday}, d)
	assert.Equal(t, ReasonOutsideValidity, got.Reason)

	d[0].ValidTo = time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	got = ValidateDiscount("ALLBAD", DiscountContext{CustomerID: "cust-1", CategoryID: "cat-van", Now: monday}, d)
	assert.Equal(t, ReasonUsageLimit, got.Reason)
}

func TestValidateDiscount_DistinctMessages(t *testing.T) {
	seen := map[string]bool{}
	for _, r := range []Reason{ReasonNotFound, ReasonOutsideValidity, ReasonUsageLimit, ReasonAlreadyUsed, ReasonCategoryExcluded} {
		msg := r.Message()
		assert.NotEmpty(t, msg)
		assert.False(t, seen[msg], msg)
		seen[msg] = true
	}
}

func TestValidateDiscount_Idempotent(t *testing.T) {
	ctx := DiscountContext{CustomerID: "cust-1", CategoryID: "cat-van", Now: monday.Add(36 * time.Hour)}
	first := ValidateDiscount("SPRING20", ctx, testDiscounts())
	second := ValidateDiscount("SPRING20", ctx, testDiscounts())
	assert.Equal(t, first, second)

	sub := decimal.NewFromFloat(123.45)
	a1, f1 := ApplyCodeDiscount(sub, first.Percentage)
	a2, f2 := ApplyCodeDiscount(sub, second.Percentage)
	assert.True(t, a1.Equal(a2))
	assert.True(t, f1.Equal(f2))
}

func TestApplyCodeDiscount_Percentage(t *testing.T) {
	amount, final := ApplyCodeDiscount(decimal.NewFromInt(100), 20)
	assert.Equal(t, "20", amount.String())
	assert.Equal(t, "80", final.String())
}

func TestApplyCodeDiscount_Bounds(t *testing.T) {
	amount, final := ApplyCodeDiscount(decimal.NewFromInt(100), 150)
	assert.Equal(t, "100", amount.String())
	assert.True(t, final.IsZero())

	amount, final = ApplyCodeDiscount(decimal.NewFromInt(100), -5)
	assert.True(t, amount.IsZero())
	assert.Equal(t, "100", final.String())

	amount, _ = ApplyCodeDiscount(decimal.RequireFromString("33.33"), 15)
	assert.Equal(t, "5", amount.String())
}
