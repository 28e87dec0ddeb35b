package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"vanrent/internal/config"
	"vanrent/internal/models"
	"vanrent/internal/pricing"
	"vanrent/internal/service"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// Bookings is the booking engine as seen by the transports.
type Bookings interface {
	AvailableSlots(ctx context.Context, req service.SlotsRequest) (*service.SlotsResponse, error)
	Quote(ctx context.Context, req service.QuoteRequest) (*service.QuoteResult, error)
	CheckDiscount(ctx context.Context, req service.DiscountRequest) (pricing.Eligibility, error)
	CreateReservation(ctx context.Context, req service.QuoteRequest) (*service.Booking, error)
	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	CancelReservation(ctx context.Context, id int64) (*models.Reservation, error)
	ConfirmReservation(ctx context.Context, id int64) (*models.Reservation, error)
	Location() *time.Location
}

// Catalog is the read side of the loaded catalog.
type Catalog interface {
	Offices() []models.Office
	Categories() []models.Category
	AddOns() []models.AddOn
	Category(id string) (models.Category, error)
}

// HTTPOptions carry transport settings that do not live in APIConfig.
type HTTPOptions struct {
	TariffMaxDays int
	Rental        pricing.RentalOptions
	// Ready reports whether dependencies are usable; nil means always ready.
	Ready func(ctx context.Context) error
}

// HTTPServer exposes the booking engine over JSON.
type HTTPServer struct {
	cfg      *config.APIConfig
	bookings Bookings
	catalog  Catalog
	opts     HTTPOptions
	auth     *HTTPAuth
	server   *http.Server
	logger   *zerolog.Logger
}

// Route names double as permission lookup keys.
const (
	routeOffices            = "offices"
	routeCategories         = "categories"
	routeAddOns             = "addons"
	routeTariff             = "tariff"
	routeTariffs            = "tariffs"
	routeSlots              = "slots"
	routeQuote              = "quote"
	routeDiscount           = "discount"
	routeReservationCreate  = "reservation.create"
	routeReservationGet     = "reservation.get"
	routeReservationCancel  = "reservation.cancel"
	routeReservationConfirm = "reservation.confirm"
)

var routePermissions = map[string]string{
	routeOffices:            permReadCatalog,
	routeCategories:         permReadCatalog,
	routeAddOns:             permReadCatalog,
	routeTariff:             permReadCatalog,
	routeTariffs:            permReadCatalog,
	routeSlots:              permReadSlots,
	routeQuote:              permWriteQuotes,
	routeDiscount:           permWriteQuotes,
	routeReservationCreate:  permWriteReservations,
	routeReservationGet:     permReadReservations,
	routeReservationCancel:  permWriteReservations,
	routeReservationConfirm: permWriteReservations,
}

func NewHTTPServer(
	cfg *config.APIConfig,
	bookings Bookings,
	catalog Catalog,
	limiter *RateLimiter,
	opts HTTPOptions,
	logger *zerolog.Logger,
) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	httpLogger := logger.With().Str("component", "http").Logger()

	srv := &HTTPServer{
		cfg:      cfg,
		bookings: bookings,
		catalog:  catalog,
		opts:     opts,
		auth:     NewHTTPAuth(cfg, limiter),
		logger:   &httpLogger,
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return srv
}

func (s *HTTPServer) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(metricsMiddleware)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.Use(s.auth.Middleware)

	v1.HandleFunc("/offices", s.handleOffices).Methods(http.MethodGet).Name(routeOffices)
	v1.HandleFunc("/offices/{officeId}/slots", s.handleSlots).Methods(http.MethodGet).Name(routeSlots)
	v1.HandleFunc("/categories", s.handleCategories).Methods(http.MethodGet).Name(routeCategories)
	v1.HandleFunc("/categories/{categoryId}/tariff.xlsx", s.handleTariff).Methods(http.MethodGet).Name(routeTariff)
	v1.HandleFunc("/tariffs.xlsx", s.handleTariffs).Methods(http.MethodGet).Name(routeTariffs)
	v1.HandleFunc("/addons", s.handleAddOns).Methods(http.MethodGet).Name(routeAddOns)
	v1.HandleFunc("/quotes", s.handleQuote).Methods(http.MethodPost).Name(routeQuote)
	v1.HandleFunc("/discounts/validate", s.handleDiscount).Methods(http.MethodPost).Name(routeDiscount)
	v1.HandleFunc("/reservations", s.handleCreateReservation).Methods(http.MethodPost).Name(routeReservationCreate)
	v1.HandleFunc("/reservations/{id:[0-9]+}", s.handleGetReservation).Methods(http.MethodGet).Name(routeReservationGet)
	v1.HandleFunc("/reservations/{id:[0-9]+}/cancel", s.handleCancelReservation).Methods(http.MethodPost).Name(routeReservationCancel)
	v1.HandleFunc("/reservations/{id:[0-9]+}/confirm", s.handleConfirmReservation).Methods(http.MethodPost).Name(routeReservationConfirm)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Порядок: CORS -> request id -> логирование -> роутер
	handler := loggingMiddleware(s.logger, r)
	handler = requestIDMiddleware(s.logger, handler)
	return s.withCORS(handler)
}

func (s *HTTPServer) withCORS(next http.Handler) http.Handler {
	c := s.cfg.CORS
	if len(c.AllowedOrigins) == 0 {
		return next
	}
	return cors.New(cors.Options{
		AllowedOrigins:   c.AllowedOrigins,
		AllowedMethods:   c.AllowedMethods,
		AllowedHeaders:   c.AllowedHeaders,
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: c.AllowCredentials,
		MaxAge:           c.MaxAge,
	}).Handler(next)
}

// Handler returns the fully wrapped handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
