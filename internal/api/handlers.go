package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"vanrent/internal/export"
	"vanrent/internal/logging"
	"vanrent/internal/models"
	"vanrent/internal/pricing"
	"vanrent/internal/service"

	"github.com/gorilla/mux"
)

const (
	maxBodyBytes = 1 << 20
	xlsxMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// localLayouts are accepted for timestamps without an offset; they are read
// in the service zone.
var localLayouts = []string{"2006-01-02T15:04", "2006-01-02T15:04:05", "2006-01-02 15:04"}

// quoteBody is the wire form of a quote or reservation request. Dates are
// strings so that a partially filled form still decodes.
type quoteBody struct {
	Office       string                  `json:"office"`
	Category     string                  `json:"category"`
	Customer     string                  `json:"customer"`
	StartDate    string                  `json:"startDate"`
	EndDate      string                  `json:"endDate"`
	GearType     string                  `json:"gearType"`
	AddOns       []models.AddOnSelection `json:"addOns"`
	DiscountCode string                  `json:"discountCode"`
}

func (b quoteBody) request(loc *time.Location) (service.QuoteRequest, error) {
	pickup, err := parseTimestamp(b.StartDate, loc)
	if err != nil {
		return service.QuoteRequest{}, fmt.Errorf("%w: startDate: %v", service.ErrInvalidRequest, err)
	}
	ret, err := parseTimestamp(b.EndDate, loc)
	if err != nil {
		return service.QuoteRequest{}, fmt.Errorf("%w: endDate: %v", service.ErrInvalidRequest, err)
	}
	return service.QuoteRequest{
		OfficeID:     strings.TrimSpace(b.Office),
		CategoryID:   strings.TrimSpace(b.Category),
		CustomerID:   strings.TrimSpace(b.Customer),
		Pickup:       pickup,
		Return:       ret,
		GearType:     strings.TrimSpace(b.GearType),
		AddOns:       b.AddOns,
		DiscountCode: strings.TrimSpace(b.DiscountCode),
	}, nil
}

// parseTimestamp accepts RFC 3339 or a local wall-clock time. Empty input
// is the zero time.
func parseTimestamp(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.opts.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Ready(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *HTTPServer) handleOffices(w http.ResponseWriter, _ *http.Request) {
	offices := s.catalog.Offices()
	sort.Slice(offices, func(i, j int) bool { return offices[i].ID < offices[j].ID })
	writeJSON(w, http.StatusOK, map[string]any{"offices": offices})
}

func (s *HTTPServer) handleCategories(w http.ResponseWriter, _ *http.Request) {
	categories := s.catalog.Categories()
	sort.Slice(categories, func(i, j int) bool { return categories[i].ID < categories[j].ID })
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (s *HTTPServer) handleAddOns(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"addOns": s.catalog.AddOns()})
}

func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	loc := s.bookings.Location()
	q := r.URL.Query()

	dateStr := strings.TrimSpace(q.Get("date"))
	if dateStr == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	date, err := time.ParseInLocation(models.DateFormat, dateStr, loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	side := strings.TrimSpace(q.Get("side"))
	if side == "" {
		side = models.SidePickup
	}
	chosenStart, err := parseTimestamp(q.Get("chosenStart"), loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid chosenStart")
		return
	}

	resp, err := s.bookings.AvailableSlots(r.Context(), service.SlotsRequest{
		OfficeID:    mux.Vars(r)["officeId"],
		CategoryID:  strings.TrimSpace(q.Get("category")),
		Date:        date,
		Side:        side,
		ChosenStart: chosenStart,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleQuote(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeQuote(w, r)
	if !ok {
		return
	}

	result, err := s.bookings.Quote(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	statusCode := http.StatusOK
	if result.Kind == pricing.ResultConfigError {
		statusCode = http.StatusInternalServerError
	}
	writeJSON(w, statusCode, result)
}

func (s *HTTPServer) handleDiscount(w http.ResponseWriter, r *http.Request) {
	var body service.DiscountRequest
	if err := decodeJSON(r, w, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	elig, err := s.bookings.CheckDiscount(r.Context(), body)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, elig)
}

func (s *HTTPServer) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeQuote(w, r)
	if !ok {
		return
	}

	booking, err := s.bookings.CreateReservation(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/v1/reservations/%d", booking.Reservation.ID))
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleGetReservation(w http.ResponseWriter, r *http.Request) {
	s.withReservationID(w, r, s.bookings.GetReservation)
}

func (s *HTTPServer) handleCancelReservation(w http.ResponseWriter, r *http.Request) {
	s.withReservationID(w, r, s.bookings.CancelReservation)
}

func (s *HTTPServer) handleConfirmReservation(w http.ResponseWriter, r *http.Request) {
	s.withReservationID(w, r, s.bookings.ConfirmReservation)
}

func (s *HTTPServer) withReservationID(w http.ResponseWriter, r *http.Request,
	fn func(context.Context, int64) (*models.Reservation, error)) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid reservation id")
		return
	}

	reservation, err := fn(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reservation)
}

func (s *HTTPServer) handleTariff(w http.ResponseWriter, r *http.Request) {
	category, err := s.catalog.Category(mux.Vars(r)["categoryId"])
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeTariff(w, r, category.ID, []models.Category{category})
}

func (s *HTTPServer) handleTariffs(w http.ResponseWriter, r *http.Request) {
	categories := s.catalog.Categories()
	sort.Slice(categories, func(i, j int) bool { return categories[i].ID < categories[j].ID })
	s.writeTariff(w, r, "tariffs", categories)
}

func (s *HTTPServer) writeTariff(w http.ResponseWriter, r *http.Request, name string, categories []models.Category) {
	var buf bytes.Buffer
	if err := export.TariffSheet(&buf, categories, s.opts.TariffMaxDays, s.opts.Rental); err != nil {
		switch {
		case errors.Is(err, export.ErrNoCategories):
			writeError(w, http.StatusNotFound, err.Error())
		case pricing.IsConfigError(err):
			logging.FromContext(r.Context(), s.logger).Error().Err(err).Msg("tariff export failed")
			writeError(w, http.StatusInternalServerError, "pricing unavailable")
		default:
			s.writeDomainError(w, r, err)
		}
		return
	}

	w.Header().Set("Content-Type", xlsxMimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".xlsx"))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, &buf)
}

func (s *HTTPServer) decodeQuote(w http.ResponseWriter, r *http.Request) (service.QuoteRequest, bool) {
	var body quoteBody
	if err := decodeJSON(r, w, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return service.QuoteRequest{}, false
	}
	req, err := body.request(s.bookings.Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return service.QuoteRequest{}, false
	}
	return req, true
}

// writeDomainError hides internal details of unexpected failures.
func (s *HTTPServer) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	code := httpStatus(err)
	if code == http.StatusInternalServerError {
		logging.FromContext(r.Context(), s.logger).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, code, "internal error")
		return
	}
	writeError(w, code, err.Error())
}

func decodeJSON(r *http.Request, w http.ResponseWriter, v any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errors.New("request body too large")
		}
		return errors.New("invalid JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
