package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vanrent/internal/api"
	"vanrent/internal/config"
	"vanrent/internal/database"
	"vanrent/internal/domain"
	"vanrent/internal/events"
	"vanrent/internal/logging"
	"vanrent/internal/metrics"
	"vanrent/internal/models"
	"vanrent/internal/pricing"
	"vanrent/internal/repository"
	"vanrent/internal/service"
	"vanrent/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := initDatabase(cfg, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	promotions, err := loadPromotions(os.Getenv("PROMOTIONS_PATH"), &logger)
	if err != nil {
		return err
	}

	catalog := service.NewCatalogService(nil, logging.Component(&logger, "catalog"))
	if err := watchCatalog(ctx, cfg, catalog, promotions, &logger); err != nil {
		return err
	}

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer (func() { _ = repository.Close(redisClient) })()
	}
	cache := initSlotCache(cfg, redisClient, &logger)

	bus := initEventBus(&logger)

	pricingOpts := pricing.RentalOptions{GraceHours: cfg.Pricing.GraceHours}
	bookings := service.NewBookingService(catalog, db, cache, bus, service.Options{
		GranularityMinutes: cfg.Pricing.GranularityMinutes,
		Rental:             pricingOpts,
		Currency:           cfg.Pricing.Currency,
		Location:           cfg.Pricing.Location(),
	}, logging.Component(&logger, "booking"))

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	limiter := api.NewRateLimiter(cfg.API.RateLimit)

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		grpcServer, err = api.NewGRPCServer(&cfg.API, bookings, limiter, nil, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
	}

	httpServer := api.NewHTTPServer(&cfg.API, bookings, catalog, limiter, api.HTTPOptions{
		TariffMaxDays: cfg.Exports.MaxDays,
		Rental:        pricingOpts,
		Ready: func(ctx context.Context) error {
			return db.PingContext(ctx)
		},
	}, &logger)

	startMetrics(ctx, cfg, &logger)

	return startServers(ctx, grpcServer, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func initDatabase(cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	db.SetRetryPolicy(worker.RetryPolicy{
		MaxRetries:    cfg.Database.BusyRetries,
		InitialDelay:  50 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2,
	})
	return db, nil
}

// watchCatalog loads the catalog synchronously and keeps it fresh.
func watchCatalog(ctx context.Context, cfg *config.Config, catalog *service.CatalogService,
	promotions []models.Discount, logger *zerolog.Logger) error {
	interval := time.Duration(cfg.Catalog.ReloadInterval) * time.Second

	err := config.WatchCatalog(ctx, cfg.Catalog.Path, interval, logger, func(c *config.Catalog) {
		if err := catalog.Refresh(mergePromotions(c, promotions, logger)); err != nil {
			logger.Error().Err(err).Msg("catalog rejected")
			return
		}
		metrics.IncCatalogReload()
	})
	if err != nil {
		logger.Error().Err(err).Str("catalog_path", cfg.Catalog.Path).Msg("load catalog")
		return err
	}
	return nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initSlotCache(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.SlotCache {
	ttl := time.Duration(cfg.Redis.SlotTTLSec) * time.Second
	memory := repository.NewMemorySlotCache(ttl)
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverSlotCache(
		repository.NewRedisSlotCache(redisClient, ttl),
		memory,
		logging.Component(logger, "slot-cache"),
	)
}

// initEventBus logs every domain event; it is the hook for outbound
// notifications.
func initEventBus(logger *zerolog.Logger) *events.EventBus {
	busLogger := logging.Component(logger, "events")
	bus := events.NewEventBus(busLogger)

	logEvent := func(e *events.Event) error {
		busLogger.Info().Str("event_type", e.Type).RawJSON("payload", e.Payload).Msg("event")
		return nil
	}
	for _, typ := range []string{
		events.EventReservationCreated,
		events.EventReservationCanceled,
		events.EventReservationConfirmed,
		events.EventDiscountRedeemed,
	} {
		bus.Subscribe(typ, logEvent)
	}
	bus.Subscribe(events.EventQuoteComputed, func(e *events.Event) error {
		busLogger.Debug().Str("event_type", e.Type).RawJSON("payload", e.Payload).Msg("event")
		return nil
	})
	return bus
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	if grpcServer != nil {
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	go func() {
		if !cfg.API.HTTP.Enabled {
			return
		}
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	event := logger.Info().Int("http_port", cfg.API.HTTP.Port)
	if grpcServer != nil {
		event = event.Str("grpc_addr", grpcServer.Addr())
	}
	event.Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout())
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
