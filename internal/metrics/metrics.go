package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vanrent"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	grpcRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "gRPC requests by method and status code.",
		},
		[]string{"method", "code"},
	)

	quotes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_total",
			Help:      "Quote assemblies by result kind.",
		},
		[]string{"kind"},
	)

	quoteDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quote_duration_seconds",
			Help:      "Time spent assembling a quote.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	discountChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discount_validations_total",
			Help:      "Discount code validations by reason (empty reason is valid).",
		},
		[]string{"reason"},
	)

	reservations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_total",
			Help:      "Reservation attempts by outcome.",
		},
		[]string{"outcome"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_cache_lookups_total",
			Help:      "Reserved slot cache lookups by result.",
		},
		[]string{"result"},
	)

	catalogReloads = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_reloads_total",
			Help:      "Successful catalog hot reloads.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, grpcRequests, quotes, quoteDuration,
			discountChecks, reservations, cacheLookups, catalogReloads)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncGRPC(method, code string) {
	grpcRequests.WithLabelValues(method, code).Inc()
}

// ObserveQuote counts a quote by result kind and records its duration.
func ObserveQuote(kind string, d time.Duration) {
	quotes.WithLabelValues(kind).Inc()
	quoteDuration.Observe(d.Seconds())
}

func IncDiscountCheck(reason string) {
	if reason == "" {
		reason = "valid"
	}
	discountChecks.WithLabelValues(reason).Inc()
}

// IncReservation counts reservation attempts: created, overlap, rejected, error.
func IncReservation(outcome string) {
	reservations.WithLabelValues(outcome).Inc()
}

func IncCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(result).Inc()
}

func IncCatalogReload() {
	catalogReloads.Inc()
}
