package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vanrent/internal/database"
	"vanrent/internal/domain"
	"vanrent/internal/events"
	"vanrent/internal/logging"
	"vanrent/internal/metrics"
	"vanrent/internal/models"
	"vanrent/internal/pricing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Options are the engine settings the booking service passes to pricing.
type Options struct {
	GranularityMinutes int
	Rental             pricing.RentalOptions
	Currency           string
	Location           *time.Location
	DiscountAttempts   int
	DiscountWindow     time.Duration
}

func (o *Options) applyDefaults() {
	if o.GranularityMinutes <= 0 {
		o.GranularityMinutes = models.DefaultGranularityMinutes
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.DiscountAttempts <= 0 {
		o.DiscountAttempts = models.DiscountAttemptsLimit
	}
	if o.DiscountWindow <= 0 {
		o.DiscountWindow = models.DiscountAttemptsWindow * time.Second
	}
}

type BookingService struct {
	catalog  *CatalogService
	store    domain.ReservationStore
	cache    domain.SlotCache
	eventBus domain.EventPublisher
	opts     Options
	now      func() time.Time
	logger   *zerolog.Logger
}

// NewBookingService wires the service. cache and eventBus may be nil.
func NewBookingService(
	catalog *CatalogService,
	store domain.ReservationStore,
	cache domain.SlotCache,
	eventBus domain.EventPublisher,
	opts Options,
	logger *zerolog.Logger,
) *BookingService {
	opts.applyDefaults()
	return &BookingService{
		catalog:  catalog,
		store:    store,
		cache:    cache,
		eventBus: eventBus,
		opts:     opts,
		now:      time.Now,
		logger:   logger,
	}
}

// Location is the zone office hours are expressed in.
func (s *BookingService) Location() *time.Location {
	return s.opts.Location
}

// SlotsRequest asks for the pickup or return picker of one day. ChosenStart
// is set for the return picker.
type SlotsRequest struct {
	OfficeID    string
	CategoryID  string
	Date        time.Time
	Side        string
	ChosenStart time.Time
}

type SlotsResponse struct {
	OfficeID string              `json:"office"`
	Date     string              `json:"date"`
	Side     string              `json:"side"`
	Open     bool                `json:"open"`
	Slots    []pricing.SlotState `json:"slots"`
	Reserved []pricing.Interval  `json:"reserved"`
}

// AvailableSlots lists the day's bookable slots with their extension fee and
// availability against stored reservations.
func (s *BookingService) AvailableSlots(ctx context.Context, req SlotsRequest) (*SlotsResponse, error) {
	if req.Side != models.SidePickup && req.Side != models.SideReturn {
		return nil, fmt.Errorf("%w: side must be %q or %q", ErrInvalidRequest, models.SidePickup, models.SideReturn)
	}
	if req.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidRequest)
	}

	office, err := s.catalog.Office(req.OfficeID)
	if err != nil {
		return nil, err
	}
	if req.CategoryID != "" {
		if _, err := s.catalog.Category(req.CategoryID); err != nil {
			return nil, err
		}
	}

	day := s.day(req.Date)
	bookable, err := pricing.BookableSlots(&office, day, req.Side, s.opts.GranularityMinutes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuoteFailed, err)
	}

	reserved, err := s.reservedSlots(ctx, req.OfficeID, req.CategoryID, day)
	if err != nil {
		return nil, err
	}
	intervals, err := pricing.NormalizeReserved(day, reserved)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuoteFailed, err)
	}

	var chosen time.Time
	if !req.ChosenStart.IsZero() {
		chosen = req.ChosenStart.In(s.opts.Location)
	}

	return &SlotsResponse{
		OfficeID: office.ID,
		Date:     day.Format(models.DateFormat),
		Side:     req.Side,
		Open:     len(bookable) > 0,
		Slots:    pricing.FilterSlots(day, bookable, intervals, chosen),
		Reserved: intervals,
	}, nil
}

// reservedSlots reads through the slot cache. Cache failures only cost a
// store round trip.
func (s *BookingService) reservedSlots(ctx context.Context, officeID, categoryID string, day time.Time) ([]models.ReservedSlot, error) {
	key := domain.SlotKey{OfficeID: officeID, CategoryID: categoryID, Date: day.Format(models.DateFormat)}
	if s.cache != nil {
		slots, ok, err := s.cache.GetReserved(ctx, key)
		if err != nil {
			s.logger.Warn().Err(err).Str("office", officeID).Msg("slot cache read failed")
		}
		metrics.IncCacheLookup(ok)
		if ok {
			return slots, nil
		}
	}

	slots, err := s.store.ReservedSlots(ctx, officeID, categoryID, day, s.opts.Location)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetReserved(ctx, key, slots); err != nil {
			s.logger.Warn().Err(err).Str("office", officeID).Msg("slot cache write failed")
		}
	}
	return slots, nil
}

// QuoteRequest carries the customer's current selections.
type QuoteRequest struct {
	OfficeID     string                  `json:"office"`
	CategoryID   string                  `json:"category"`
	CustomerID   string                  `json:"customer,omitempty"`
	Pickup       time.Time               `json:"startDate"`
	Return       time.Time               `json:"endDate"`
	GearType     string                  `json:"gearType,omitempty"`
	AddOns       []models.AddOnSelection `json:"addOns,omitempty"`
	DiscountCode string                  `json:"discountCode,omitempty"`
}

// QuoteResult is a pricing result with the id it was logged under.
type QuoteResult struct {
	ID string `json:"id"`
	pricing.Result
}

// Quote assembles a price for req. Missing selections yield a pending
// result, not an error; unknown office or category ids are errors.
func (s *BookingService) Quote(ctx context.Context, req QuoteRequest) (*QuoteResult, error) {
	started := time.Now()
	log := logging.FromContext(ctx, s.logger)

	draft, err := s.draft(req)
	if err != nil {
		return nil, err
	}

	discounts := s.catalog.Discounts()
	if draft.DiscountCode() != "" {
		if discounts, err = s.mergeUsage(ctx, discounts, draft.DiscountCode()); err != nil {
			return nil, err
		}
	}

	result := pricing.Assemble(draft, pricing.Inputs{
		AddOnCatalog: s.catalog.AddOns(),
		Discounts:    discounts,
		Now:          s.now(),
		Rental:       s.opts.Rental,
		Currency:     s.opts.Currency,
	})
	out := &QuoteResult{ID: uuid.NewString(), Result: result}
	metrics.ObserveQuote(string(result.Kind), time.Since(started))

	switch result.Kind {
	case pricing.ResultOK:
		if result.Quote.Discount != nil {
			metrics.IncDiscountCheck(string(result.Quote.Discount.Reason))
		}
		s.publish(events.EventQuoteComputed, events.QuoteEventPayload{
			QuoteID:      out.ID,
			OfficeID:     req.OfficeID,
			CategoryID:   req.CategoryID,
			CustomerID:   req.CustomerID,
			TotalHours:   result.Quote.TotalHours,
			TotalPrice:   result.Quote.TotalPrice,
			DiscountCode: draft.DiscountCode(),
		})
	case pricing.ResultConfigError:
		log.Error().Err(result.Err).Str("quote_id", out.ID).Str("category", req.CategoryID).Msg("quote configuration error")
	default:
		log.Debug().Str("quote_id", out.ID).Strs("missing", result.Missing).Msg("quote pending")
	}
	return out, nil
}

func (s *BookingService) draft(req QuoteRequest) (pricing.Draft, error) {
	d := pricing.NewDraft().
		WithCustomer(req.CustomerID).
		WithDiscountCode(req.DiscountCode)

	if req.OfficeID != "" {
		office, err := s.catalog.Office(req.OfficeID)
		if err != nil {
			return d, err
		}
		d = d.WithOffice(office)
	}
	if req.CategoryID != "" {
		category, err := s.catalog.Category(req.CategoryID)
		if err != nil {
			return d, err
		}
		d = d.WithCategory(category)
	}
	if !req.Pickup.IsZero() {
		d = d.WithPickup(req.Pickup.In(s.opts.Location))
	}
	if !req.Return.IsZero() {
		d = d.WithReturn(req.Return.In(s.opts.Location))
	}
	if req.GearType != "" {
		if req.GearType != models.GearManual && req.GearType != models.GearAutomatic {
			return d, fmt.Errorf("%w: unknown gear type %q", ErrInvalidRequest, req.GearType)
		}
		d = d.WithGear(req.GearType)
	}

	selections, err := s.selections(req.AddOns)
	if err != nil {
		return d, err
	}
	return d.WithAddOns(selections), nil
}

// selections replays the request through Select so that two add-ons of
// one type are rejected. Unknown ids pass through and surface as quote
// issues.
func (s *BookingService) selections(raw []models.AddOnSelection) (pricing.Selections, error) {
	catalog := s.catalog.AddOns()
	byID := make(map[string]models.AddOn, len(catalog))
	for _, a := range catalog {
		byID[a.ID] = a
	}

	var out pricing.Selections
	matching := make(map[string]bool)
	for _, sel := range raw {
		addOn, ok := byID[sel.AddOnID]
		if !ok {
			if sel.Quantity > 0 {
				out = append(out, sel)
			}
			continue
		}
		next, err := out.Select(addOn, sel.Quantity, sel.SelectedTierIndex, catalog)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		out = next
		matching[sel.AddOnID] = sel.UseMatchingTier
	}
	for i := range out {
		if matching[out[i].AddOnID] {
			out[i].UseMatchingTier = true
		}
	}
	return out, nil
}

// mergeUsage adds stored redemptions of code to the catalog counters so a
// code cannot be reused between catalog exports.
func (s *BookingService) mergeUsage(ctx context.Context, discounts []models.Discount, code string) ([]models.Discount, error) {
	code = strings.TrimSpace(code)
	for i := range discounts {
		if !strings.EqualFold(discounts[i].Code, code) {
			continue
		}
		count, customers, err := s.store.DiscountUsage(ctx, discounts[i].Code)
		if err != nil {
			return nil, err
		}
		discounts[i].UsageCount += count
		for _, c := range customers {
			if !contains(discounts[i].UsedBy, c) {
				discounts[i].UsedBy = append(discounts[i].UsedBy, c)
			}
		}
		break
	}
	return discounts, nil
}

// storedUsageLimit returns how many redemptions of code the store may still
// hold once catalog usage is subtracted, or nil for an unlimited code.
func (s *BookingService) storedUsageLimit(code string) *int {
	for _, d := range s.catalog.Discounts() {
		if !strings.EqualFold(d.Code, code) || d.UsageLimit == nil {
			continue
		}
		limit := *d.UsageLimit - d.UsageCount
		if limit < 0 {
			limit = 0
		}
		return &limit
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// DiscountRequest checks a code before the customer commits to a quote.
type DiscountRequest struct {
	Code       string `json:"code"`
	CustomerID string `json:"customer,omitempty"`
	CategoryID string `json:"category,omitempty"`
}

// CheckDiscount validates a code. Attempts are limited per customer to
// stop code guessing.
func (s *BookingService) CheckDiscount(ctx context.Context, req DiscountRequest) (pricing.Eligibility, error) {
	if strings.TrimSpace(req.Code) == "" {
		return pricing.Eligibility{}, fmt.Errorf("%w: code is required", ErrInvalidRequest)
	}

	if s.cache != nil {
		subject := "discount:" + req.CustomerID
		if req.CustomerID == "" {
			subject = "discount:anonymous"
		}
		allowed, err := s.cache.CheckRateLimit(ctx, subject, s.opts.DiscountAttempts, s.opts.DiscountWindow)
		if err != nil {
			s.logger.Warn().Err(err).Msg("discount rate limit check failed")
		} else if !allowed {
			return pricing.Eligibility{}, ErrRateLimited
		}
	}

	discounts, err := s.mergeUsage(ctx, s.catalog.Discounts(), req.Code)
	if err != nil {
		return pricing.Eligibility{}, err
	}

	elig := pricing.ValidateDiscount(req.Code, pricing.DiscountContext{
		CustomerID: req.CustomerID,
		CategoryID: req.CategoryID,
		Now:        s.now(),
	}, discounts)
	metrics.IncDiscountCheck(string(elig.Reason))
	return elig, nil
}

// Booking is a stored reservation with the quote it was priced from.
type Booking struct {
	Reservation *models.Reservation `json:"reservation"`
	Quote       *QuoteResult        `json:"quote"`
}

// CreateReservation prices req on the server, checks that both ends are
// offered slots and the span is free, and stores it. Client totals are
// never trusted.
func (s *BookingService) CreateReservation(ctx context.Context, req QuoteRequest) (*Booking, error) {
	log := logging.FromContext(ctx, s.logger)

	if req.CustomerID == "" {
		return nil, fmt.Errorf("%w: customer is required", ErrInvalidRequest)
	}

	quote, err := s.Quote(ctx, req)
	if err != nil {
		return nil, err
	}
	switch quote.Kind {
	case pricing.ResultPending:
		metrics.IncReservation("rejected")
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, quote.Detail)
	case pricing.ResultConfigError:
		metrics.IncReservation("error")
		return nil, fmt.Errorf("%w: %s", ErrQuoteFailed, quote.Detail)
	}

	q := quote.Quote
	if len(q.AddOnIssues) > 0 {
		metrics.IncReservation("rejected")
		return nil, fmt.Errorf("%w: add-on %s: %s", ErrInvalidRequest, q.AddOnIssues[0].AddOnID, q.AddOnIssues[0].Detail)
	}
	if q.Discount != nil && !q.Discount.Valid {
		metrics.IncReservation("rejected")
		return nil, fmt.Errorf("%w: %s", ErrDiscountRejected, q.Discount.Message)
	}

	office, err := s.catalog.Office(req.OfficeID)
	if err != nil {
		return nil, err
	}
	pickup := req.Pickup.In(s.opts.Location)
	ret := req.Return.In(s.opts.Location)
	if err := s.checkOffered(&office, pickup, models.SidePickup); err != nil {
		metrics.IncReservation("rejected")
		return nil, err
	}
	if err := s.checkOffered(&office, ret, models.SideReturn); err != nil {
		metrics.IncReservation("rejected")
		return nil, err
	}

	active, err := s.store.ListActiveReservations(ctx, req.OfficeID, req.CategoryID, pickup, ret)
	if err != nil {
		return nil, err
	}
	if len(active) > 0 {
		metrics.IncReservation("overlap")
		return nil, fmt.Errorf("%w: overlaps reservation %d", ErrSlotUnavailable, active[0].ID)
	}

	reservation := &models.Reservation{
		OfficeID:   req.OfficeID,
		CategoryID: req.CategoryID,
		CustomerID: req.CustomerID,
		StartDate:  pickup,
		EndDate:    ret,
		GearType:   req.GearType,
		Status:     models.StatusPending,
		TotalPrice: q.TotalPrice,
		AddOns:     lineSelections(q.AddOns),
	}
	if q.Discount != nil && q.Discount.Valid {
		reservation.DiscountCode = q.Discount.Code
		reservation.DiscountLimit = s.storedUsageLimit(q.Discount.Code)
	}

	if err := s.store.CreateReservationWithLock(ctx, reservation); err != nil {
		switch {
		case errors.Is(err, database.ErrOverlap):
			metrics.IncReservation("overlap")
			return nil, fmt.Errorf("%w: %v", ErrSlotUnavailable, err)
		case errors.Is(err, database.ErrDiscountAlreadyUsed):
			metrics.IncReservation("rejected")
			return nil, fmt.Errorf("%w: %s", ErrDiscountRejected, pricing.ReasonAlreadyUsed.Message())
		case errors.Is(err, database.ErrDiscountLimitReached):
			metrics.IncReservation("rejected")
			return nil, fmt.Errorf("%w: %s", ErrDiscountRejected, pricing.ReasonUsageLimit.Message())
		}
		metrics.IncReservation("error")
		return nil, err
	}
	metrics.IncReservation("created")

	log.Info().
		Int64("reservation_id", reservation.ID).
		Str("office", reservation.OfficeID).
		Str("category", reservation.CategoryID).
		Float64("total", reservation.TotalPrice).
		Msg("reservation created")

	s.invalidate(ctx, reservation.OfficeID)
	s.publishReservation(events.EventReservationCreated, reservation)
	if reservation.DiscountCode != "" && q.DiscountAmount != nil {
		s.publish(events.EventDiscountRedeemed, events.DiscountEventPayload{
			Code:          reservation.DiscountCode,
			CustomerID:    reservation.CustomerID,
			ReservationID: reservation.ID,
			Amount:        *q.DiscountAmount,
		})
	}

	return &Booking{Reservation: reservation, Quote: quote}, nil
}

// checkOffered rejects times the picker would never show: off the slot
// grid or outside the widened window.
func (s *BookingService) checkOffered(office *models.Office, at time.Time, side string) error {
	slots, err := pricing.BookableSlots(office, at, side, s.opts.GranularityMinutes)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrQuoteFailed, err)
	}
	tod := pricing.TimeOfDayOf(at)
	if at.Second() != 0 || at.Nanosecond() != 0 {
		return fmt.Errorf("%w: %s %s is not on the slot grid", ErrSlotUnavailable, side, at.Format(time.RFC3339))
	}
	for _, slot := range slots {
		if slot.Time == tod {
			return nil
		}
	}
	return fmt.Errorf("%w: %s at %s is not offered", ErrSlotUnavailable, side, at.Format(time.RFC3339))
}

func lineSelections(lines []pricing.AddOnLine) []models.AddOnSelection {
	out := make([]models.AddOnSelection, 0, len(lines))
	for _, l := range lines {
		sel := models.AddOnSelection{AddOnID: l.AddOnID, Quantity: l.Quantity}
		if l.TierIndex >= 0 {
			idx := l.TierIndex
			sel.SelectedTierIndex = &idx
		}
		out = append(out, sel)
	}
	return out
}

func (s *BookingService) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	return s.store.GetReservation(ctx, id)
}

// CancelReservation frees the slot of a pending or confirmed reservation.
func (s *BookingService) CancelReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	return s.setStatus(ctx, id, models.StatusCanceled, events.EventReservationCanceled)
}

func (s *BookingService) ConfirmReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	return s.setStatus(ctx, id, models.StatusConfirmed, events.EventReservationConfirmed)
}

func (s *BookingService) setStatus(ctx context.Context, id int64, status, eventType string) (*models.Reservation, error) {
	if err := s.store.UpdateReservationStatus(ctx, id, status); err != nil {
		return nil, err
	}
	reservation, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx, s.logger).Info().Int64("reservation_id", id).Str("status", status).Msg("reservation status changed")
	s.invalidate(ctx, reservation.OfficeID)
	s.publishReservation(eventType, reservation)
	return reservation, nil
}

func (s *BookingService) invalidate(ctx context.Context, officeID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateOffice(ctx, officeID); err != nil {
		s.logger.Warn().Err(err).Str("office", officeID).Msg("slot cache invalidation failed")
	}
}

func (s *BookingService) publishReservation(eventType string, r *models.Reservation) {
	s.publish(eventType, events.ReservationEventPayload{
		ReservationID: r.ID,
		OfficeID:      r.OfficeID,
		CategoryID:    r.CategoryID,
		CustomerID:    r.CustomerID,
		Status:        r.Status,
		StartDate:     r.StartDate,
		EndDate:       r.EndDate,
		TotalPrice:    r.TotalPrice,
		DiscountCode:  r.DiscountCode,
	})
}

func (s *BookingService) publish(eventType string, payload interface{}) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("publish event error")
	}
}

// day maps t to midnight of its calendar day in the service zone.
func (s *BookingService) day(t time.Time) time.Time {
	y, m, d := t.In(s.opts.Location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.opts.Location)
}
