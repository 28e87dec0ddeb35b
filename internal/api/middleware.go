package api

import (
	"net"
	"net/http"
	"strings"
	"time"

	"vanrent/internal/config"
	"vanrent/internal/logging"
	"vanrent/internal/metrics"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

const requestIDHeader = "X-Request-ID"

// HTTPAuth provides API-key auth and per-key rate limiting for HTTP endpoints.
type HTTPAuth struct {
	cfg     *config.APIConfig
	keys    *keyring
	limiter *RateLimiter
}

func NewHTTPAuth(cfg *config.APIConfig, limiter *RateLimiter) *HTTPAuth {
	if limiter == nil {
		limiter = NewRateLimiter(cfg.RateLimit)
	}
	return &HTTPAuth{cfg: cfg, keys: newKeyring(cfg.Auth), limiter: limiter}
}

// Middleware is installed on the /api/v1 subrouter; the matched route name
// selects the required permission.
func (a *HTTPAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.cfg.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		if a.cfg.Auth.Enabled {
			if err := a.checkAuth(r); err != nil {
				writeError(w, httpStatus(err), err.Error())
				return
			}
		}

		if !a.limiter.Allow(a.clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, errRateLimitExceeded.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *HTTPAuth) checkAuth(r *http.Request) error {
	apiKey := strings.TrimSpace(r.Header.Get(a.keys.apiKeyHeader))
	extra := strings.TrimSpace(r.Header.Get(a.keys.extraHeader))
	return a.keys.authenticate(apiKey, extra, requiredPermissionHTTP(r))
}

func requiredPermissionHTTP(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return ""
	}
	return routePermissions[route.GetName()]
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(a.keys.apiKeyHeader)); apiKey != "" {
		return apiKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}

func requestIDMiddleware(logger *zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequest(r.Context(), logger, id)))
	})
}

func loggingMiddleware(logger *zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		log := logging.FromContext(r.Context(), logger)
		event := log.Info()
		if recorder.status >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// metricsMiddleware counts requests by route template so path ids do not
// explode label cardinality.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tpl
			}
		}
		metrics.IncHTTP(r.Method + " " + endpoint)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
