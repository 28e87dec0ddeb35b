package pricing

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"vanrent/internal/models"
)

// Draft is a reservation in progress. It is a value: every With* method
// returns a modified copy, so a quote computed from one Draft can never go
// stale when the user changes an input.
type Draft struct {
	office       *models.Office
	category     *models.Category
	pickup       time.Time
	ret          time.Time
	gearType     string
	addOns       Selections
	discountCode string
	customerID   string
}

func NewDraft() Draft {
	return Draft{gearType: models.GearManual}
}

func (d Draft) WithOffice(office models.Office) Draft {
	d.office = &office
	return d
}

func (d Draft) WithCategory(category models.Category) Draft {
	d.category = &category
	return d
}

func (d Draft) WithPickup(t time.Time) Draft {
	d.pickup = t
	return d
}

func (d Draft) WithReturn(t time.Time) Draft {
	d.ret = t
	return d
}

func (d Draft) WithGear(gearType string) Draft {
	d.gearType = gearType
	return d
}

func (d Draft) WithAddOns(s Selections) Draft {
	d.addOns = append(Selections(nil), s...)
	return d
}

func (d Draft) WithDiscountCode(code string) Draft {
	d.discountCode = strings.TrimSpace(code)
	return d
}

func (d Draft) WithCustomer(customerID string) Draft {
	d.customerID = customerID
	return d
}

func (d Draft) Office() *models.Office     { return d.office }
func (d Draft) Category() *models.Category { return d.category }
func (d Draft) Pickup() time.Time          { return d.pickup }
func (d Draft) Return() time.Time          { return d.ret }
func (d Draft) GearType() string           { return d.gearType }
func (d Draft) AddOns() Selections         { return append(Selections(nil), d.addOns...) }
func (d Draft) DiscountCode() string       { return d.discountCode }
func (d Draft) CustomerID() string         { return d.customerID }

// Missing names the inputs still required before a quote can be computed.
func (d Draft) Missing() []string {
	var missing []string
	if d.office == nil {
		missing = append(missing, "office")
	}
	if d.category == nil {
		missing = append(missing, "category")
	}
	if d.pickup.IsZero() {
		missing = append(missing, "pickup")
	}
	if d.ret.IsZero() {
		missing = append(missing, "return")
	}
	return missing
}

// Inputs are the catalog records and settings a quote depends on besides
// the draft itself.
type Inputs struct {
	AddOnCatalog []models.AddOn
	Discounts    []models.Discount
	Now          time.Time
	Rental       RentalOptions
	Currency     string
}

type ResultKind string

const (
	ResultOK          ResultKind = "ok"
	ResultPending     ResultKind = "pending"
	ResultConfigError ResultKind = "configError"
)

// Result is exactly one of: a quote, a pending state, or a configuration
// error with its detail.
type Result struct {
	Kind    ResultKind `json:"kind"`
	Quote   *Quote     `json:"quote,omitempty"`
	Detail  string     `json:"detail,omitempty"`
	Missing []string   `json:"missing,omitempty"`
	Err     error      `json:"-"`
}

// Quote is the full price breakdown of a prospective reservation.
type Quote struct {
	TotalHours         int          `json:"totalHours"`
	TotalDays          int          `json:"totalDays"`
	ExtraHours         int          `json:"extraHours"`
	ListPricePerDay    float64      `json:"listPricePerDay"`
	PricePerDay        float64      `json:"pricePerDay"`
	ExtraHoursRate     float64      `json:"extraHoursRate"`
	RentalPrice        float64      `json:"rentalPrice"`
	PickupExtensionFee float64      `json:"pickupExtensionFee"`
	ReturnExtensionFee float64      `json:"returnExtensionFee"`
	GearSurcharge      float64      `json:"gearSurcharge"`
	AddOns             []AddOnLine  `json:"addOns"`
	AddOnIssues        []AddOnIssue `json:"addOnIssues,omitempty"`
	AddOnSubtotal      float64      `json:"addOnSubtotal"`
	Subtotal           float64      `json:"subtotal"`
	Discount           *Eligibility `json:"discount,omitempty"`
	DiscountAmount     *float64     `json:"discountAmount,omitempty"`
	TotalPrice         float64      `json:"totalPrice"`
	Deposit            float64      `json:"deposit"`
	Currency           string       `json:"currency,omitempty"`
	Breakdown          string       `json:"breakdown"`
}

func pending(detail string, missing []string) Result {
	return Result{Kind: ResultPending, Detail: detail, Missing: missing, Err: ErrQuoteNotReady}
}

func failed(err error) Result {
	if errors.Is(err, ErrQuoteNotReady) {
		return pending(err.Error(), nil)
	}
	return Result{Kind: ResultConfigError, Detail: err.Error(), Err: err}
}

// Assemble computes the quote for d. It is deterministic in (d, in).
func Assemble(d Draft, in Inputs) Result {
	if missing := d.Missing(); len(missing) > 0 {
		return pending("missing "+strings.Join(missing, ", "), missing)
	}
	if !d.ret.After(d.pickup) {
		return pending("return must be after pickup", nil)
	}

	listPricePerDay := 0.0
	if tier, err := FindTier(d.category.PricingTiers, BillableHours(d.pickup, d.ret)); err == nil {
		listPricePerDay = tier.PricePerDay
	}

	category := ApplySellOffer(*d.category)
	if err := ValidateTiers(category.PricingTiers); err != nil {
		return failed(fmt.Errorf("category %s: %w", category.ID, err))
	}

	rental, err := CalculateRental(d.pickup, d.ret, category.PricingTiers, category.ExtraHoursRate, in.Rental)
	if err != nil {
		return failed(err)
	}

	pickupFee, err := extensionFee(d.office, d.pickup, models.SidePickup)
	if err != nil {
		return failed(err)
	}
	returnFee, err := extensionFee(d.office, d.ret, models.SideReturn)
	if err != nil {
		return failed(err)
	}

	gear := GearSurcharge(category, d.gearType)
	addOns := CalculateAddOns(d.addOns, in.AddOnCatalog, rental.TotalDays)

	subtotal := decimal.NewFromFloat(rental.TotalPrice).
		Add(decimal.NewFromFloat(pickupFee)).
		Add(decimal.NewFromFloat(returnFee)).
		Add(decimal.NewFromFloat(gear)).
		Add(decimal.NewFromFloat(addOns.Subtotal))

	q := &Quote{
		TotalHours:         rental.TotalHours,
		TotalDays:          rental.TotalDays,
		ExtraHours:         rental.ExtraHours,
		ListPricePerDay:    listPricePerDay,
		PricePerDay:        rental.PricePerDay,
		ExtraHoursRate:     rental.ExtraHoursRate,
		RentalPrice:        round2(decimal.NewFromFloat(rental.TotalPrice)),
		PickupExtensionFee: pickupFee,
		ReturnExtensionFee: returnFee,
		GearSurcharge:      gear,
		AddOns:             addOns.Lines,
		AddOnIssues:        addOns.Issues,
		AddOnSubtotal:      round2(decimal.NewFromFloat(addOns.Subtotal)),
		Subtotal:           round2(subtotal),
		TotalPrice:         round2(subtotal),
		Deposit:            category.Deposit,
		Currency:           in.Currency,
	}

	if d.discountCode != "" {
		elig := ValidateDiscount(d.discountCode, DiscountContext{
			CustomerID: d.customerID,
			CategoryID: category.ID,
			Now:        in.Now,
		}, in.Discounts)
		q.Discount = &elig

		if amount, final, ok := applyCodeDiscount(subtotal, elig); ok {
			a := round2(amount)
			q.DiscountAmount = &a
			q.TotalPrice = round2(final)
		}
	}

	q.Breakdown = breakdown(q)
	return Result{Kind: ResultOK, Quote: q}
}

// ApplySellOffer takes the category's sell-off percentage off every
// tier's listed daily price. It runs before tier lookup.
func ApplySellOffer(category models.Category) models.Category {
	if category.SellOffer == nil || *category.SellOffer <= 0 {
		return category
	}

	factor := decimal.NewFromInt(100).Sub(decimal.NewFromFloat(*category.SellOffer)).Div(decimal.NewFromInt(100))
	if factor.IsNegative() {
		factor = decimal.Zero
	}

	tiers := make([]models.PricingTier, len(category.PricingTiers))
	for i, t := range category.PricingTiers {
		t.PricePerDay = round2(decimal.NewFromFloat(t.PricePerDay).Mul(factor))
		tiers[i] = t
	}
	category.PricingTiers = tiers
	return category
}

// applyCodeDiscount runs after subtotal assembly; ok is false when the code
// was not eligible.
func applyCodeDiscount(subtotal decimal.Decimal, elig Eligibility) (amount, final decimal.Decimal, ok bool) {
	if !elig.Valid {
		return decimal.Zero, subtotal, false
	}
	amount, final = ApplyCodeDiscount(subtotal, elig.Percentage)
	return amount, final, true
}

func extensionFee(office *models.Office, at time.Time, side string) (float64, error) {
	hours, err := ResolveDayHours(office, at)
	if err != nil {
		return 0, err
	}
	return ResolveExtensionFee(hours, hours.Extension(side), TimeOfDayOf(at)), nil
}

// GearSurcharge is the automatic-transmission extra; it applies only when
// the category offers both gear types.
func GearSurcharge(category models.Category, gearType string) float64 {
	if gearType != models.GearAutomatic {
		return 0
	}
	if !category.Gear.Offers(models.GearManual) || !category.Gear.Offers(models.GearAutomatic) {
		return 0
	}
	return category.Gear.AutomaticExtraCost
}

func round2(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

func breakdown(q *Quote) string {
	var b strings.Builder

	days := "days"
	if q.TotalDays == 1 {
		days = "day"
	}
	fmt.Fprintf(&b, "%d %s x %.2f = %.2f\n", q.TotalDays, days, q.PricePerDay, float64(q.TotalDays)*q.PricePerDay)
	if q.ExtraHours > 0 {
		fmt.Fprintf(&b, "%d extra hours x %.2f = %.2f\n", q.ExtraHours, q.ExtraHoursRate, float64(q.ExtraHours)*q.ExtraHoursRate)
	}
	if q.PickupExtensionFee > 0 {
		fmt.Fprintf(&b, "pickup out of hours: %.2f\n", q.PickupExtensionFee)
	}
	if q.ReturnExtensionFee > 0 {
		fmt.Fprintf(&b, "return out of hours: %.2f\n", q.ReturnExtensionFee)
	}
	if q.GearSurcharge > 0 {
		fmt.Fprintf(&b, "automatic gear: %.2f\n", q.GearSurcharge)
	}
	for _, line := range q.AddOns {
		fmt.Fprintf(&b, "%s x%d: %.2f\n", line.Name, line.Quantity, line.Cost)
	}
	if q.DiscountAmount != nil {
		fmt.Fprintf(&b, "subtotal: %.2f\n", q.Subtotal)
		fmt.Fprintf(&b, "discount %s (%g%%): -%.2f\n", q.Discount.Code, q.Discount.Percentage, *q.DiscountAmount)
	}
	fmt.Fprintf(&b, "total: %.2f", q.TotalPrice)
	if q.Currency != "" {
		b.WriteString(" " + q.Currency)
	}
	return b.String()
}
